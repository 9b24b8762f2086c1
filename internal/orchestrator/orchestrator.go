// Package orchestrator drives the media pipeline: connect storage,
// scan, classify against metadata, then organize files or generate
// .strm pointers. Every operation works on one session's state and
// reports progress over the WebSocket hub.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/strmforge/strmforge/internal/classifier"
	"github.com/strmforge/strmforge/internal/config"
	"github.com/strmforge/strmforge/internal/database"
	"github.com/strmforge/strmforge/internal/materializer"
	"github.com/strmforge/strmforge/internal/metadata/tmdb"
	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/resolver"
	"github.com/strmforge/strmforge/internal/session"
	"github.com/strmforge/strmforge/internal/storage"
)

// Orchestrator owns the long-lived pipeline pieces. Source and target
// clients are pooled separately so a server used as both keeps two
// independent caches.
type Orchestrator struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *session.Store
	db       *database.DB
	progress *progress.Manager

	tmdb     *tmdb.Client
	mappings *resolver.Cache

	sources *storage.Pool
	targets *storage.Pool

	classifier   *classifier.Classifier
	materializer *materializer.Service

	// clientFor is swapped by tests to inject fake storage clients.
	clientFor func(ctx context.Context, pool *storage.Pool, sc session.StorageConfig) (storage.Client, error)
}

// New wires an orchestrator. db and prog may be nil in tests.
func New(cfg *config.Config, logger zerolog.Logger, store *session.Store, db *database.DB, prog *progress.Manager, tmdbClient *tmdb.Client) *Orchestrator {
	o := &Orchestrator{
		cfg:          cfg,
		logger:       logger.With().Str("component", "orchestrator").Logger(),
		store:        store,
		db:           db,
		progress:     prog,
		tmdb:         tmdbClient,
		mappings:     resolver.NewCache(),
		sources:      storage.NewPool(logger.With().Str("pool", "source").Logger()),
		targets:      storage.NewPool(logger.With().Str("pool", "target").Logger()),
		classifier:   classifier.New(logger),
		materializer: materializer.NewService(logger),
	}
	o.clientFor = o.pooledClient
	return o
}

// SourcePool exposes the source client pool for cache sweeping.
func (o *Orchestrator) SourcePool() *storage.Pool { return o.sources }

// TargetPool exposes the target client pool for cache sweeping.
func (o *Orchestrator) TargetPool() *storage.Pool { return o.targets }

// pooledClient returns the interned client for a connection, probing
// the protocol when the session does not carry it yet.
func (o *Orchestrator) pooledClient(ctx context.Context, pool *storage.Pool, sc session.StorageConfig) (storage.Client, error) {
	kind := storage.Kind(sc.Type)
	if kind == "" {
		probed, err := storage.Probe(ctx, sc.URL)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", sc.URL, err)
		}
		kind = probed
	}
	return pool.Get(kind, o.storageOptions(sc))
}

func (o *Orchestrator) storageOptions(sc session.StorageConfig) storage.Options {
	return storage.Options{
		URL:          sc.URL,
		Username:     sc.Username,
		Password:     sc.Password,
		RateInterval: o.cfg.Storage.RateLimitInterval,
		CacheTTL:     o.cfg.Storage.CacheTTL,
		CacheSize:    o.cfg.Storage.CacheCapacity,
		Retries:      o.cfg.Storage.RetryAttempts,
	}
}

// normalizeURL makes a user-entered server address usable: missing
// scheme defaults to http, trailing slashes go away.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("storage URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid storage URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid storage URL %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// displayName repairs file names that arrive GBK-encoded from older
// servers so logs and progress lines stay readable. Valid UTF-8 passes
// through untouched.
func displayName(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().String(s)
	if err != nil || !utf8.ValidString(decoded) {
		return s
	}
	return decoded
}

// history records an operation row; failures are logged, never fatal.
func (o *Orchestrator) history(ctx context.Context, sessionID, op, message string) {
	if o.db == nil {
		return
	}
	if err := o.db.AddHistory(ctx, sessionID, op, message); err != nil {
		o.logger.Warn().Err(err).Str("session", sessionID).Str("op", op).Msg("history write failed")
	}
}

// History returns a session's operation log, newest first.
func (o *Orchestrator) History(ctx context.Context, sessionID string, limit int) ([]database.HistoryRow, error) {
	if o.db == nil {
		return nil, nil
	}
	if _, err := o.store.Get(sessionID); err != nil {
		return nil, err
	}
	return o.db.ListHistory(ctx, sessionID, limit)
}
