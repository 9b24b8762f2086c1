package scanner

import (
	"strings"
	"time"

	"github.com/strmforge/strmforge/internal/pathutil"
	"github.com/strmforge/strmforge/internal/storage"
)

// FileType buckets scanned entries.
type FileType string

const (
	TypeVideo    FileType = "video"
	TypeSubtitle FileType = "subtitle"
	TypeOther    FileType = "other"
)

var videoExts = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {},
	".webm": {}, ".m4v": {}, ".ts": {}, ".rmvb": {}, ".rm": {}, ".3gp": {},
	".m2ts": {}, ".vob": {}, ".mpg": {}, ".mpeg": {},
}

var subtitleExts = map[string]struct{}{
	".srt": {}, ".ass": {}, ".ssa": {}, ".sub": {},
}

// IsVideo reports whether the name carries a known video extension.
func IsVideo(name string) bool {
	_, ok := videoExts[pathutil.Ext(name)]
	return ok
}

// IsSubtitle reports whether the name carries a known subtitle extension.
func IsSubtitle(name string) bool {
	_, ok := subtitleExts[pathutil.Ext(name)]
	return ok
}

// TypeOf classifies a file name by extension.
func TypeOf(name string) FileType {
	switch {
	case IsVideo(name):
		return TypeVideo
	case IsSubtitle(name):
		return TypeSubtitle
	default:
		return TypeOther
	}
}

// File is one scanned entry, typed and (for subtitles) tagged with the
// language extracted from the file name.
type File struct {
	storage.FileInfo
	Type     FileType `json:"type"`
	Language string   `json:"language,omitempty"`
}

// Result summarizes a scan.
type Result struct {
	Files      []File   `json:"files"`
	Videos     int      `json:"videos"`
	Subtitles  int      `json:"subtitles"`
	Others     int      `json:"others"`
	Dirs       int      `json:"dirs"`
	Truncated  bool     `json:"truncated"`
	FailedDirs []string `json:"failed_dirs,omitempty"`
}

// Options controls a scan.
type Options struct {
	Recursive bool
	MaxDepth  int           // relative to the scan root; 0 = just the root, <0 = unlimited
	MaxFiles  int           // 0 = unlimited
	ScanDelay time.Duration // pause between directory listings
	Exclude   []string      // case-insensitive substring filters
}

func excluded(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
