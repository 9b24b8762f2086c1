package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/scanner"
	"github.com/strmforge/strmforge/internal/session"
)

// ErrNotConnected is returned when an operation needs an endpoint the
// session has not connected yet.
var ErrNotConnected = errors.New("storage is not connected")

// ScanRequest carries the per-scan knobs. Nil pointer fields fall back
// to their defaults: recursive with no depth limit, the session's
// configured scan delay, and the connected source's scan path.
type ScanRequest struct {
	Path      string         `json:"path,omitempty"`
	Recursive *bool          `json:"recursive,omitempty"`
	MaxFiles  int            `json:"max_files,omitempty"`
	MaxDepth  *int           `json:"max_depth,omitempty"`
	ScanDelay *time.Duration `json:"scan_delay,omitempty"`
	Exclude   []string       `json:"exclude,omitempty"`
}

func (r ScanRequest) options(cfg session.UserConfig) scanner.Options {
	opts := scanner.Options{
		Recursive: true,
		MaxDepth:  -1,
		MaxFiles:  r.MaxFiles,
		ScanDelay: cfg.ScanDelay,
		Exclude:   r.Exclude,
	}
	if r.Recursive != nil {
		opts.Recursive = *r.Recursive
	}
	if r.MaxDepth != nil {
		opts.MaxDepth = *r.MaxDepth
	}
	if r.ScanDelay != nil && *r.ScanDelay >= 0 {
		opts.ScanDelay = *r.ScanDelay
	}
	return opts
}

// Scan walks the source scan path and stores the found files on the
// session. A new scan discards the previous classification, which was
// computed against the old file list.
func (o *Orchestrator) Scan(ctx context.Context, sessionID string, req ScanRequest) (string, *session.Delta, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return "", nil, err
	}
	if !state.Source.Connected {
		return "", nil, fmt.Errorf("source %w", ErrNotConnected)
	}

	client, err := o.clientFor(ctx, o.sources, state.Source)
	if err != nil {
		return "", nil, err
	}

	root := req.Path
	if root == "" {
		root = state.Source.ScanPath
	}
	if root == "" {
		root = "/"
	}

	activityID := uuid.NewString()
	o.track(func() {
		o.progress.Start(activityID, sessionID, progress.ActivityTypeScan, "Scanning "+displayName(root))
	})

	opts := req.options(state.Config)
	result, err := scanner.New(client, o.logger).Scan(ctx, root, opts, func(dir string, found int) {
		o.track(func() {
			o.progress.Update(activityID, fmt.Sprintf("%s · %d files", displayName(dir), found), -1)
		})
	})
	if err != nil {
		o.track(func() { o.progress.Fail(activityID, err.Error()) })
		return "", nil, err
	}

	err = o.store.Update(ctx, sessionID, func(s *session.State) {
		s.ScannedFiles = result.Files
		s.ScanSummary = result
		s.Classifications = nil
		s.ClassifySummary = nil
		s.MediaItems = nil
	})
	if err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("Scanned %d directories: %d videos, %d subtitles", result.Dirs, result.Videos, result.Subtitles)
	if result.Truncated {
		msg += " (truncated)"
	}
	o.track(func() { o.progress.Complete(activityID, msg) })
	o.history(ctx, sessionID, "scan", msg)
	return msg, &session.Delta{ScanSummary: result}, nil
}

// FilePage is one slice of the scanned file list.
type FilePage struct {
	Files  []scanner.File `json:"files"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
}

// ListFiles pages through the session's scanned files, optionally
// filtered by type ("video", "subtitle", "other").
func (o *Orchestrator) ListFiles(sessionID string, fileType string, offset, limit int) (*FilePage, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	filtered := state.ScannedFiles
	if fileType != "" {
		filtered = make([]scanner.File, 0)
		for _, f := range state.ScannedFiles {
			if string(f.Type) == fileType {
				filtered = append(filtered, f)
			}
		}
	}

	page := &FilePage{Total: len(filtered), Offset: offset}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset < len(filtered) {
		end := offset + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		page.Files = filtered[offset:end]
	}
	return page, nil
}

// track runs a progress callback when a manager is wired.
func (o *Orchestrator) track(fn func()) {
	if o.progress != nil {
		fn()
	}
}
