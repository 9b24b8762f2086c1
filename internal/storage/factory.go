package storage

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Probe detects which protocol a server speaks. An Alist server
// answers GET /api/public/settings with a JSON envelope carrying a
// "code" field; anything else is treated as plain WebDAV.
func Probe(ctx context.Context, baseURL string) (Kind, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(baseURL, "/")+"/api/public/settings", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return KindWebDAV, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return KindWebDAV, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return KindWebDAV, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return KindWebDAV, nil
	}
	if _, ok := probe["code"]; ok {
		return KindAlist, nil
	}
	return KindWebDAV, nil
}

// New builds a client of the given kind.
func New(kind Kind, opts Options, logger zerolog.Logger) (Client, error) {
	switch kind {
	case KindAlist:
		return NewAlistClient(opts, logger), nil
	case KindWebDAV:
		return NewWebDAVClient(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}
}

// Pool interns clients by connection identity so repeated operations on
// the same server share one client (and its cache, token and limiter).
// Source and target clients live in separate pools.
type Pool struct {
	mu      sync.Mutex
	clients map[string]Client
	logger  zerolog.Logger
}

// NewPool creates an empty pool.
func NewPool(logger zerolog.Logger) *Pool {
	return &Pool{
		clients: make(map[string]Client),
		logger:  logger.With().Str("component", "storage-pool").Logger(),
	}
}

// cacheKey hashes the connection identity; only url, username and
// password participate.
func cacheKey(opts Options) string {
	sum := md5.Sum([]byte(opts.URL + "|" + opts.Username + "|" + opts.Password))
	return fmt.Sprintf("%x", sum)[:16]
}

// Get returns the interned client for the connection, creating one of
// the given kind on first use.
func (p *Pool) Get(kind Kind, opts Options) (Client, error) {
	key := cacheKey(opts)
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := New(kind, opts, p.logger)
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	p.logger.Debug().Str("key", key).Str("kind", string(kind)).Msg("storage client created")
	return c, nil
}

// Put stores an already constructed client under its connection key.
func (p *Pool) Put(opts Options, c Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[cacheKey(opts)] = c
}

// Clear drops all interned clients.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[string]Client)
}

// Sweep purges expired directory cache entries of every interned
// client. Wired to the periodic cache sweep job.
func (p *Pool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, c := range p.clients {
		switch cc := c.(type) {
		case *AlistClient:
			total += cc.PurgeCache()
		case *WebDAVClient:
			total += cc.PurgeCache()
		}
	}
	return total
}
