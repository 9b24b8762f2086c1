package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/strmforge/strmforge/internal/session"
	"github.com/strmforge/strmforge/internal/storage"
)

// ConnectionStatus is the masked view of a session's endpoints.
type ConnectionStatus struct {
	Source session.StorageConfig `json:"source"`
	Target session.StorageConfig `json:"target"`
}

// ConnectSource verifies and stores the source storage connection. The
// scan path (or the root when none is set) must list successfully
// before the connection counts.
func (o *Orchestrator) ConnectSource(ctx context.Context, sessionID string, sc session.StorageConfig) (string, *session.Delta, error) {
	sc, err := o.connect(ctx, sessionID, o.sources, sc, sc.ScanPath)
	if err != nil {
		return "", nil, err
	}

	if err := o.store.Update(ctx, sessionID, func(s *session.State) {
		s.Source = sc
	}); err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("Connected source %s (%s)", sc.URL, sc.Type)
	o.history(ctx, sessionID, "connect_source", msg)
	masked := sc.Masked()
	return msg, &session.Delta{Source: &masked}, nil
}

// ConnectTarget verifies and stores the target storage connection.
// STRM generation writes under the target path, so that is what gets
// verified.
func (o *Orchestrator) ConnectTarget(ctx context.Context, sessionID string, sc session.StorageConfig) (string, *session.Delta, error) {
	sc, err := o.connect(ctx, sessionID, o.targets, sc, sc.TargetPath)
	if err != nil {
		return "", nil, err
	}

	if err := o.store.Update(ctx, sessionID, func(s *session.State) {
		s.Target = sc
	}); err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("Connected target %s (%s)", sc.URL, sc.Type)
	o.history(ctx, sessionID, "connect_target", msg)
	masked := sc.Masked()
	return msg, &session.Delta{Target: &masked}, nil
}

// connect normalizes the URL, builds a client and proves the
// credentials by listing the working path.
func (o *Orchestrator) connect(ctx context.Context, sessionID string, pool *storage.Pool, sc session.StorageConfig, verifyPath string) (session.StorageConfig, error) {
	if _, err := o.store.Get(sessionID); err != nil {
		return sc, err
	}

	normalized, err := normalizeURL(sc.URL)
	if err != nil {
		return sc, err
	}
	sc.URL = normalized

	client, err := o.clientFor(ctx, pool, sc)
	if err != nil {
		return sc, err
	}

	if verifyPath == "" {
		verifyPath = "/"
	}
	if _, err := client.ListUncached(ctx, verifyPath); err != nil {
		if errors.Is(err, storage.ErrAuthFailed) {
			return sc, fmt.Errorf("authentication failed for %s: check username and password", sc.URL)
		}
		return sc, fmt.Errorf("cannot list %s on %s: %w", verifyPath, sc.URL, err)
	}

	sc.Type = string(client.Kind())
	sc.Connected = true
	return sc, nil
}

// Status reports both endpoints with passwords masked.
func (o *Orchestrator) Status(sessionID string) (*ConnectionStatus, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &ConnectionStatus{
		Source: state.Source.Masked(),
		Target: state.Target.Masked(),
	}, nil
}

// SetUserConfig merges a partial config update into the session.
func (o *Orchestrator) SetUserConfig(ctx context.Context, sessionID string, patch session.UserConfigPatch) (string, *session.Delta, error) {
	var updated session.UserConfig
	err := o.store.Update(ctx, sessionID, func(s *session.State) {
		patch.Apply(&s.Config)
		updated = s.Config
	})
	if err != nil {
		return "", nil, err
	}

	msg := "Configuration updated"
	o.history(ctx, sessionID, "set_config", msg)
	return msg, &session.Delta{Config: &updated}, nil
}
