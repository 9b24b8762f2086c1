package materializer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/strmforge/strmforge/internal/naming"
	"github.com/strmforge/strmforge/internal/pathutil"
	"github.com/strmforge/strmforge/internal/storage"
)

const subtitleConcurrency = 16

// GenerateSTRM writes one .strm per classified video onto the target
// storage and copies subtitles across. .strm bodies are the source's
// direct play URL. Failed subtitle transfers are captured for retry;
// failed .strm writes are only counted, regenerating them is cheap.
func (s *Service) GenerateSTRM(ctx context.Context, source, target storage.Client, items []Item, targetRoot string, opts Options) (*STRMResult, error) {
	var (
		strms    []storage.UploadFile
		subTasks []SubtitleTask
	)
	for _, item := range items {
		if !item.Video.IsMatched() {
			continue
		}
		lay := resolveLayout(targetRoot, item, opts.NamingLanguage)
		strms = append(strms, storage.UploadFile{
			Path: pathutil.Join(lay.dir, naming.StrmFileName(lay.videoName)),
			Data: []byte(source.DirectURL(item.Video.SourcePath)),
		})
		for _, sub := range item.Video.Subtitles {
			subTasks = append(subTasks, SubtitleTask{
				SourcePath: sub.Path,
				TargetPath: pathutil.Join(lay.dir, naming.SubtitleFileName(lay.videoName, sub.Language, pathutil.Ext(sub.Name), sub.IsDefault)),
				IsDefault:  sub.IsDefault,
			})
		}
	}

	result := &STRMResult{}
	if opts.UploadDelay > 0 {
		s.strmSerial(ctx, source, target, strms, subTasks, opts.UploadDelay, result)
	} else {
		s.strmConcurrent(ctx, source, target, strms, subTasks, result)
	}

	// make the target re-read every directory we touched so media
	// servers see the new entries
	touched := map[string]struct{}{}
	var dirs []string
	for _, f := range strms {
		d := pathutil.Dir(f.Path)
		if _, ok := touched[d]; !ok {
			touched[d] = struct{}{}
			dirs = append(dirs, d)
		}
	}
	if err := target.RefreshDirs(ctx, dirs); err != nil {
		s.logger.Warn().Err(err).Msg("target refresh failed")
	}

	s.logger.Info().
		Int("strm", result.StrmWritten).
		Int("strm_failed", result.StrmFailed).
		Int("subtitles", result.SubtitlesWritten).
		Int("subtitles_failed", result.SubtitlesFailed).
		Msg("strm generation finished")
	return result, nil
}

func (s *Service) strmConcurrent(ctx context.Context, source, target storage.Client, strms []storage.UploadFile, subTasks []SubtitleTask, result *STRMResult) {
	batch := target.UploadBatch(ctx, strms)
	result.StrmWritten = batch.Succeeded
	result.StrmFailed = batch.Failed

	var mu sync.Mutex
	sem := semaphore.NewWeighted(subtitleConcurrency)
	var wg sync.WaitGroup
	for _, task := range subTasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.SubtitlesFailed++
			result.Failed = append(result.Failed, failedSubtitle(task, err))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(task SubtitleTask) {
			defer wg.Done()
			defer sem.Release(1)
			err := transferSubtitle(ctx, source, target, task)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.SubtitlesFailed++
				result.Failed = append(result.Failed, failedSubtitle(task, err))
			} else {
				result.SubtitlesWritten++
			}
		}(task)
	}
	wg.Wait()
}

// strmSerial is the degraded path for throttled targets: everything in
// order, one upload delay apart.
func (s *Service) strmSerial(ctx context.Context, source, target storage.Client, strms []storage.UploadFile, subTasks []SubtitleTask, delay time.Duration, result *STRMResult) {
	sleep := time.Sleep
	for _, f := range strms {
		if ctx.Err() != nil {
			result.StrmFailed++
			continue
		}
		if err := target.Upload(ctx, f.Path, f.Data); err != nil {
			s.logger.Warn().Err(err).Str("path", f.Path).Msg("strm upload failed")
			result.StrmFailed++
		} else {
			result.StrmWritten++
		}
		sleep(delay)
	}
	for _, task := range subTasks {
		if ctx.Err() != nil {
			result.SubtitlesFailed++
			result.Failed = append(result.Failed, failedSubtitle(task, ctx.Err()))
			continue
		}
		if err := transferSubtitle(ctx, source, target, task); err != nil {
			result.SubtitlesFailed++
			result.Failed = append(result.Failed, failedSubtitle(task, err))
		} else {
			result.SubtitlesWritten++
		}
		sleep(delay)
	}
}

// transferSubtitle is the atomic download-then-upload unit.
func transferSubtitle(ctx context.Context, source, target storage.Client, task SubtitleTask) error {
	data, err := source.Download(ctx, task.SourcePath)
	if err != nil {
		return err
	}
	return target.Upload(ctx, task.TargetPath, data)
}

func failedSubtitle(task SubtitleTask, err error) FailedUpload {
	return FailedUpload{
		SourcePath: task.SourcePath,
		TargetPath: task.TargetPath,
		Kind:       "subtitle",
		Error:      err.Error(),
	}
}

// RetryResult summarizes a retry pass.
type RetryResult struct {
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
	Remaining int `json:"remaining"`
}

// RetryFailed drains recorded failed uploads serially. Entries that
// succeed are dropped; the rest come back with their latest error.
func (s *Service) RetryFailed(ctx context.Context, source, target storage.Client, failed []FailedUpload) (*RetryResult, []FailedUpload) {
	result := &RetryResult{Retried: len(failed)}
	var remaining []FailedUpload

	for _, f := range failed {
		task := SubtitleTask{SourcePath: f.SourcePath, TargetPath: f.TargetPath}
		if err := transferSubtitle(ctx, source, target, task); err != nil {
			f.Error = err.Error()
			remaining = append(remaining, f)
			continue
		}
		result.Succeeded++
	}
	result.Remaining = len(remaining)

	s.logger.Info().
		Int("retried", result.Retried).
		Int("succeeded", result.Succeeded).
		Int("remaining", result.Remaining).
		Msg("failed upload retry finished")
	return result, remaining
}
