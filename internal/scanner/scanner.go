// Package scanner walks a remote directory tree and collects the video
// and subtitle files a library scan cares about.
package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/storage"
)

// Scanner performs depth-first scans over a storage client.
type Scanner struct {
	client storage.Client
	logger zerolog.Logger
	sleep  func(time.Duration)
}

// New creates a scanner bound to a client.
func New(client storage.Client, logger zerolog.Logger) *Scanner {
	return &Scanner{
		client: client,
		logger: logger.With().Str("component", "scanner").Logger(),
		sleep:  time.Sleep,
	}
}

// OnDir is invoked after each directory listing with the directory path
// and the running file count; used for progress reporting.
type OnDir func(dir string, found int)

// Scan walks root depth-first. Directories that fail to list are logged
// and skipped; a file limit marks the result truncated instead of
// failing the scan.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options, onDir OnDir) (*Result, error) {
	result := &Result{}
	first := true

	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.MaxDepth >= 0 && depth > opts.MaxDepth {
			return nil
		}
		if opts.MaxFiles > 0 && len(result.Files) >= opts.MaxFiles {
			result.Truncated = true
			return nil
		}

		if !first && opts.ScanDelay > 0 {
			s.sleep(opts.ScanDelay)
		}
		first = false

		entries, err := s.client.List(ctx, dir)
		if err != nil {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("listing failed, skipping directory")
			result.FailedDirs = append(result.FailedDirs, dir)
			return nil
		}
		result.Dirs++

		for _, e := range entries {
			if opts.MaxFiles > 0 && len(result.Files) >= opts.MaxFiles {
				result.Truncated = true
				return nil
			}
			if e.IsDir {
				if opts.Recursive {
					if err := walk(e.Path, depth+1); err != nil {
						return err
					}
				}
				continue
			}
			if excluded(e.Name, opts.Exclude) {
				continue
			}
			f := File{FileInfo: e, Type: TypeOf(e.Name)}
			switch f.Type {
			case TypeVideo:
				result.Videos++
			case TypeSubtitle:
				f.Language = SubtitleLanguage(e.Name)
				result.Subtitles++
			default:
				result.Others++
			}
			result.Files = append(result.Files, f)
		}

		if onDir != nil {
			onDir(dir, len(result.Files))
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("root", root).
		Int("videos", result.Videos).
		Int("subtitles", result.Subtitles).
		Int("dirs", result.Dirs).
		Bool("truncated", result.Truncated).
		Msg("scan finished")
	return result, nil
}
