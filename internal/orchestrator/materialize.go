package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/strmforge/strmforge/internal/materializer"
	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/naming"
	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/session"
)

// Organize renames and moves the classified files into the library
// tree on the source storage. The classification is consumed: the
// source paths it recorded no longer exist once the moves land, so a
// finished run clears it.
func (o *Orchestrator) Organize(ctx context.Context, sessionID string) (string, *session.Delta, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return "", nil, err
	}
	if !state.Source.Connected {
		return "", nil, fmt.Errorf("source %w", ErrNotConnected)
	}
	items := materializeItems(state.MediaItems)
	if len(items) == 0 {
		return "", nil, fmt.Errorf("nothing classified yet")
	}

	client, err := o.clientFor(ctx, o.sources, state.Source)
	if err != nil {
		return "", nil, err
	}

	targetRoot := state.Source.TargetPath
	if targetRoot == "" {
		return "", nil, fmt.Errorf("source target path is not set")
	}

	activityID := uuid.NewString()
	o.track(func() {
		o.progress.Start(activityID, sessionID, progress.ActivityTypeOrganize,
			fmt.Sprintf("Organizing %d files", len(items)))
	})

	opts := materializer.Options{
		NamingLanguage: media.Language(state.Config.NamingLanguage),
		UseCopy:        state.Config.UseCopy,
	}
	result, err := o.materializer.Organize(ctx, client, items, targetRoot, opts)
	if err != nil {
		o.track(func() { o.progress.Fail(activityID, err.Error()) })
		return "", nil, err
	}

	err = o.store.Update(ctx, sessionID, func(s *session.State) {
		s.Classifications = nil
		s.ClassifySummary = nil
		s.MediaItems = nil
	})
	if err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("Organized %d files", result.Organized)
	if result.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", result.Failed)
	}
	o.track(func() { o.progress.Complete(activityID, msg) })
	o.history(ctx, sessionID, "organize", msg)
	return msg, &session.Delta{OrganizeResult: result}, nil
}

// GenerateSTRM writes .strm pointers and subtitles onto the target
// storage. The classification is consumed: a finished run clears it so
// a stale result cannot be materialized twice, while failed subtitle
// transfers stay on the session for retry.
func (o *Orchestrator) GenerateSTRM(ctx context.Context, sessionID string) (string, *session.Delta, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return "", nil, err
	}
	if !state.Source.Connected {
		return "", nil, fmt.Errorf("source %w", ErrNotConnected)
	}
	if !state.Target.Connected {
		return "", nil, fmt.Errorf("target %w", ErrNotConnected)
	}
	items := materializeItems(state.MediaItems)
	if len(items) == 0 {
		return "", nil, fmt.Errorf("nothing classified yet")
	}

	source, err := o.clientFor(ctx, o.sources, state.Source)
	if err != nil {
		return "", nil, err
	}
	target, err := o.clientFor(ctx, o.targets, state.Target)
	if err != nil {
		return "", nil, err
	}

	targetRoot := state.Target.TargetPath
	if targetRoot == "" {
		targetRoot = "/"
	}

	activityID := uuid.NewString()
	o.track(func() {
		o.progress.Start(activityID, sessionID, progress.ActivityTypeSTRM,
			fmt.Sprintf("Generating %d strm files", len(items)))
	})

	opts := materializer.Options{
		NamingLanguage: media.Language(state.Config.NamingLanguage),
		UploadDelay:    state.Config.UploadDelay,
	}
	result, err := o.materializer.GenerateSTRM(ctx, source, target, items, targetRoot, opts)
	if err != nil {
		o.track(func() { o.progress.Fail(activityID, err.Error()) })
		return "", nil, err
	}

	err = o.store.Update(ctx, sessionID, func(s *session.State) {
		s.Classifications = nil
		s.ClassifySummary = nil
		s.MediaItems = nil
		s.FailedUploads = result.Failed
	})
	if err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("Generated %d strm files, %d subtitles", result.StrmWritten, result.SubtitlesWritten)
	if result.StrmFailed+result.SubtitlesFailed > 0 {
		msg += fmt.Sprintf(" (%d strm, %d subtitles failed)", result.StrmFailed, result.SubtitlesFailed)
	}
	o.track(func() { o.progress.Complete(activityID, msg) })
	o.history(ctx, sessionID, "strm", msg)
	return msg, &session.Delta{STRMResult: result, FailedUploads: result.Failed}, nil
}

// RetryFailed re-runs the session's failed subtitle transfers. An
// empty queue is a no-op reported as success.
func (o *Orchestrator) RetryFailed(ctx context.Context, sessionID string) (string, *session.Delta, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return "", nil, err
	}
	if len(state.FailedUploads) == 0 {
		return "Retried 0 uploads: 0 succeeded, 0 remaining",
			&session.Delta{RetryResult: &materializer.RetryResult{}}, nil
	}
	if !state.Source.Connected {
		return "", nil, fmt.Errorf("source %w", ErrNotConnected)
	}
	if !state.Target.Connected {
		return "", nil, fmt.Errorf("target %w", ErrNotConnected)
	}

	source, err := o.clientFor(ctx, o.sources, state.Source)
	if err != nil {
		return "", nil, err
	}
	target, err := o.clientFor(ctx, o.targets, state.Target)
	if err != nil {
		return "", nil, err
	}

	activityID := uuid.NewString()
	o.track(func() {
		o.progress.Start(activityID, sessionID, progress.ActivityTypeRetry,
			fmt.Sprintf("Retrying %d failed uploads", len(state.FailedUploads)))
	})

	result, remaining := o.materializer.RetryFailed(ctx, source, target, state.FailedUploads)

	err = o.store.Update(ctx, sessionID, func(s *session.State) {
		s.FailedUploads = remaining
	})
	if err != nil {
		return "", nil, err
	}

	msg := fmt.Sprintf("Retried %d uploads: %d succeeded, %d remaining", result.Retried, result.Succeeded, result.Remaining)
	o.track(func() { o.progress.Complete(activityID, msg) })
	o.history(ctx, sessionID, "retry", msg)
	return msg, &session.Delta{RetryResult: result, FailedUploads: remaining}, nil
}

// materializeItems converts stored media items into materializer input.
func materializeItems(items []session.MediaItem) []materializer.Item {
	out := make([]materializer.Item, 0, len(items))
	for _, it := range items {
		if !it.Classification.IsMatched() {
			continue
		}
		out = append(out, materializer.Item{
			Video:       it.Classification,
			Title:       it.Title,
			Year:        it.Year,
			Subcategory: naming.Subcategory(it.Subcategory),
		})
	}
	return out
}
