// Package materializer writes classified media into the target library,
// either by reorganizing the files in place (organize mode) or by
// emitting .strm pointer files plus copied subtitles onto a separate
// target server (STRM mode).
package materializer

import (
	"time"

	"github.com/strmforge/strmforge/internal/classifier"
	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/naming"
	"github.com/strmforge/strmforge/internal/pathutil"
)

// Item is one classified video enriched with the metadata naming needs.
type Item struct {
	Video       classifier.Classification
	Title       string
	Year        int
	Subcategory naming.Subcategory
}

// Options carries the user-facing knobs.
type Options struct {
	NamingLanguage media.Language
	UseCopy        bool          // organize mode: copy the video instead of moving
	UploadDelay    time.Duration // STRM mode: >0 degrades batches to serial loops
}

// FailedUpload records one failed subtitle transfer so it can be
// retried later.
type FailedUpload struct {
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
	Kind       string `json:"type"`
	Error      string `json:"error"`
}

// SubtitleTask is one atomic download-then-upload unit in STRM mode.
type SubtitleTask struct {
	SourcePath string
	TargetPath string
	IsDefault  bool
}

// OrganizeResult summarizes an organize run.
type OrganizeResult struct {
	Organized int      `json:"organized"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// STRMResult summarizes a STRM generation run.
type STRMResult struct {
	StrmWritten      int            `json:"strm_written"`
	StrmFailed       int            `json:"strm_failed"`
	SubtitlesWritten int            `json:"subtitles_written"`
	SubtitlesFailed  int            `json:"subtitles_failed"`
	Failed           []FailedUpload `json:"failed,omitempty"`
}

// layout is the resolved destination for one item.
type layout struct {
	dir       string // directory the video (or .strm) lands in
	titleDir  string // series or movie folder, for mkdir
	videoName string // renamed video file name
}

// resolveLayout computes where an item belongs under the target root.
func resolveLayout(root string, item Item, lang media.Language) layout {
	cl := item.Video
	base := naming.TargetPath(root, cl.MediaType, item.Subcategory, lang)
	titleDir := pathutil.Join(base, naming.SeriesFolder(item.Title, item.Year))
	ext := pathutil.Ext(cl.FileName)

	if cl.MediaType == media.Movie {
		return layout{
			dir:       titleDir,
			titleDir:  titleDir,
			videoName: naming.MovieFileName(item.Title, item.Year, ext),
		}
	}
	return layout{
		dir:       pathutil.Join(titleDir, naming.SeasonFolder(cl.Season)),
		titleDir:  titleDir,
		videoName: naming.EpisodeFileName(item.Title, cl.Season, cl.Episode, ext),
	}
}
