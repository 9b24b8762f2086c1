package materializer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/naming"
	"github.com/strmforge/strmforge/internal/pathutil"
	"github.com/strmforge/strmforge/internal/storage"
)

// Service materializes classified media.
type Service struct {
	logger zerolog.Logger
}

// NewService creates a materializer.
func NewService(logger zerolog.Logger) *Service {
	return &Service{logger: logger.With().Str("component", "materializer").Logger()}
}

// Organize renames and moves classified videos (and their subtitles)
// into the library tree on the same storage. Work is serial on purpose:
// organize touches the source tree and runs through the client's rate
// gate.
func (s *Service) Organize(ctx context.Context, client storage.Client, items []Item, targetRoot string, opts Options) (*OrganizeResult, error) {
	result := &OrganizeResult{}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !item.Video.IsMatched() {
			continue
		}
		if err := s.organizeOne(ctx, client, item, targetRoot, opts); err != nil {
			s.logger.Warn().Err(err).Str("path", item.Video.SourcePath).Msg("organize failed")
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.Video.SourcePath, err))
			continue
		}
		result.Organized++
	}

	s.logger.Info().Int("organized", result.Organized).Int("failed", result.Failed).Msg("organize finished")
	return result, nil
}

func (s *Service) organizeOne(ctx context.Context, client storage.Client, item Item, targetRoot string, opts Options) error {
	lay := resolveLayout(targetRoot, item, opts.NamingLanguage)

	if err := client.Mkdir(ctx, lay.titleDir); err != nil {
		return fmt.Errorf("create %s: %w", lay.titleDir, err)
	}
	if lay.dir != lay.titleDir {
		if err := client.Mkdir(ctx, lay.dir); err != nil {
			return fmt.Errorf("create %s: %w", lay.dir, err)
		}
	}

	videoDst := pathutil.Join(lay.dir, lay.videoName)
	transfer := client.Move
	if opts.UseCopy {
		transfer = client.Copy
	}
	if err := transfer(ctx, item.Video.SourcePath, videoDst); err != nil {
		return fmt.Errorf("place video: %w", err)
	}

	// the default subtitle is copied untagged first so players pick it
	// up, then every subtitle (the default included) moves to its
	// tagged name
	for _, sub := range item.Video.Subtitles {
		if !sub.IsDefault {
			continue
		}
		dst := pathutil.Join(lay.dir, naming.SubtitleFileName(lay.videoName, sub.Language, pathutil.Ext(sub.Name), true))
		if err := client.Copy(ctx, sub.Path, dst); err != nil {
			return fmt.Errorf("copy default subtitle: %w", err)
		}
	}
	for _, sub := range item.Video.Subtitles {
		dst := pathutil.Join(lay.dir, naming.SubtitleFileName(lay.videoName, sub.Language, pathutil.Ext(sub.Name), false))
		if err := client.Move(ctx, sub.Path, dst); err != nil {
			return fmt.Errorf("move subtitle %s: %w", sub.Name, err)
		}
	}
	return nil
}
