package storage

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/strmforge/strmforge/internal/pathutil"
)

// base carries the pieces shared by both backends: the hardened HTTP
// client, the directory cache, the rate gate and the retry policy.
type base struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	gate     *gate
	cache    *dirCache
	retry    retrier
	sleep    func(time.Duration)
	logger   zerolog.Logger
}

func newBase(opts Options, component string, logger zerolog.Logger) base {
	opts.applyDefaults()
	return base{
		baseURL:  strings.TrimRight(opts.URL, "/"),
		username: opts.Username,
		password: opts.Password,
		http:     newHTTPClient(),
		gate:     newGate(opts.RateInterval),
		cache:    newDirCache(opts.CacheSize, opts.CacheTTL),
		retry:    retrier{attempts: opts.Retries, delay: opts.RetryDelay, sleep: opts.Sleep},
		sleep:    opts.Sleep,
		logger:   logger.With().Str("component", component).Logger(),
	}
}

// newHTTPClient builds a client with keep-alive tuned for many small
// requests against a single host.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// PurgeCache drops expired directory cache entries and reports how many
// were removed. Wired to the periodic cache sweep.
func (b *base) PurgeCache() int {
	return b.cache.purgeExpired()
}

// InvalidateCache clears the whole directory cache.
func (b *base) InvalidateCache() {
	b.cache.clear()
}

// invalidateAround evicts the cache entries a mutation at path affects:
// the path itself (it may be a directory) and its parent.
func (b *base) invalidateAround(path string) {
	b.cache.invalidate(pathutil.Normalize(path))
	b.cache.invalidate(pathutil.Dir(path))
}

// batchBackend is the slice of a client that batch helpers need.
// uploadDirect writes without passing the rate gate.
type batchBackend interface {
	Mkdir(ctx context.Context, path string) error
	RefreshDir(ctx context.Context, path string) error
	uploadDirect(ctx context.Context, path string, data []byte) error
}

// uploadBatch creates every ancestor directory serially (shallowest
// first, rate-gated through Mkdir), then uploads all files with bounded
// concurrency. Uploads bypass the rate gate.
func uploadBatch(ctx context.Context, be batchBackend, files []UploadFile, logger zerolog.Logger) BatchResult {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	for _, dir := range pathutil.AncestorDirs(paths) {
		if err := be.Mkdir(ctx, dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("mkdir failed during batch upload")
		}
	}

	var (
		mu     sync.Mutex
		result BatchResult
	)
	sem := semaphore.NewWeighted(uploadConcurrency)
	var wg sync.WaitGroup
	for _, f := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Failed++
			result.FailedPaths = append(result.FailedPaths, f.Path)
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(f UploadFile) {
			defer wg.Done()
			defer sem.Release(1)
			err := be.uploadDirect(ctx, f.Path, f.Data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn().Err(err).Str("path", f.Path).Msg("batch upload failed")
				result.Failed++
				result.FailedPaths = append(result.FailedPaths, f.Path)
			} else {
				result.Succeeded++
			}
		}(f)
	}
	wg.Wait()
	return result
}

// refreshDirs re-reads the given directories with bounded concurrency.
func refreshDirs(ctx context.Context, be batchBackend, dirs []string, logger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, dir := range dirs {
		g.Go(func() error {
			if err := be.RefreshDir(ctx, dir); err != nil {
				logger.Warn().Err(err).Str("dir", dir).Msg("directory refresh failed")
			}
			return nil
		})
	}
	return g.Wait()
}
