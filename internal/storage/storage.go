// Package storage provides clients for remote media storage servers.
// Two backends are supported: Alist (JSON REST API) and plain WebDAV.
// Both share an LRU directory cache, a request rate gate and a linear
// retry policy.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAuthFailed   = errors.New("storage authentication failed")
	ErrNotFound     = errors.New("path not found")
	ErrRateLimited  = errors.New("storage server rate limited")
	ErrNotConnected = errors.New("storage client is not connected")
)

// Kind identifies the protocol a client speaks.
type Kind string

const (
	KindAlist  Kind = "alist"
	KindWebDAV Kind = "webdav"
)

// FileInfo describes a single remote file or directory.
type FileInfo struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	IsDir       bool      `json:"is_dir"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	ContentType string    `json:"content_type,omitempty"`
}

// UploadFile is one entry of a batch upload.
type UploadFile struct {
	Path string
	Data []byte
}

// BatchResult summarizes a batch upload.
type BatchResult struct {
	Succeeded   int
	Failed      int
	FailedPaths []string
}

// Client is the operation surface shared by both backends.
//
// List serves from the directory cache when a fresh entry exists;
// ListUncached always hits the server. Every mutating operation
// invalidates the affected cache entries.
type Client interface {
	List(ctx context.Context, path string) ([]FileInfo, error)
	ListUncached(ctx context.Context, path string) ([]FileInfo, error)
	Mkdir(ctx context.Context, path string) error
	Move(ctx context.Context, src, dst string) error
	Copy(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, path string) error
	Upload(ctx context.Context, path string, data []byte) error
	UploadBatch(ctx context.Context, files []UploadFile) BatchResult
	Download(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	RefreshDir(ctx context.Context, path string) error
	RefreshDirs(ctx context.Context, dirs []string) error
	DirectURL(path string) string
	Kind() Kind
	BaseURL() string
}

// Options configures a client.
type Options struct {
	URL      string
	Username string
	Password string

	// RateInterval is the minimum spacing between storage requests.
	// Zero disables the gate. Batch uploads bypass it.
	RateInterval time.Duration

	CacheTTL   time.Duration // directory cache TTL, default 5m
	CacheSize  int           // directory cache capacity, default 100
	Retries    int           // attempts per operation, default 3
	RetryDelay time.Duration // base delay, grows linearly, default 1s

	// Sleep is swapped out by tests to avoid real waiting.
	Sleep func(time.Duration)
}

func (o *Options) applyDefaults() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 100
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
}

const (
	uploadConcurrency  = 16
	refreshConcurrency = 4

	// backoff applied when the server reports too many requests
	rateLimitBackoff = 5 * time.Second
	// bound on back-to-back rate-limit waits within one operation
	maxRateLimitWaits = 3
)

// retrier runs an operation up to attempts times with a linearly
// growing delay between attempts (delay, 2*delay, ...).
type retrier struct {
	attempts int
	delay    time.Duration
	sleep    func(time.Duration)
}

func (r retrier) do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		// the rate-limit budget is spent inside the call itself
		if errors.Is(err, ErrRateLimited) {
			return err
		}
		if attempt < r.attempts {
			r.sleep(r.delay * time.Duration(attempt))
		}
	}
	return err
}
