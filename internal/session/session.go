// Package session holds per-client working state: connected storage
// endpoints, user preferences, the latest scan and classification
// results, and any failed uploads awaiting retry. State lives in
// memory and is snapshotted to SQLite so a restart does not lose
// connected sessions.
package session

import (
	"time"

	"github.com/strmforge/strmforge/internal/classifier"
	"github.com/strmforge/strmforge/internal/materializer"
	"github.com/strmforge/strmforge/internal/scanner"
)

// StorageConfig describes one connected storage endpoint.
type StorageConfig struct {
	URL        string `json:"url"`
	ScanPath   string `json:"scan_path,omitempty"`
	TargetPath string `json:"target_path,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Type       string `json:"type,omitempty"` // "alist" or "webdav"
	Connected  bool   `json:"connected"`
}

// Masked returns a copy safe for API responses.
func (c StorageConfig) Masked() StorageConfig {
	if c.Password != "" {
		c.Password = "******"
	}
	return c
}

// UserConfig carries the adjustable scan and materialize knobs.
type UserConfig struct {
	ScanDelay      time.Duration `json:"scan_delay"`
	UploadDelay    time.Duration `json:"upload_delay"`
	NamingLanguage string        `json:"naming_language"`
	UseCopy        bool          `json:"use_copy"`
}

// DefaultUserConfig returns the out-of-the-box knobs.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		NamingLanguage: "zh",
		UseCopy:        true,
	}
}

// UserConfigPatch is a partial update. Nil fields mean "unchanged".
type UserConfigPatch struct {
	ScanDelay      *time.Duration `json:"scan_delay,omitempty"`
	UploadDelay    *time.Duration `json:"upload_delay,omitempty"`
	NamingLanguage *string        `json:"naming_language,omitempty"`
	UseCopy        *bool          `json:"use_copy,omitempty"`
}

// Apply merges the patch into a config.
func (p UserConfigPatch) Apply(cfg *UserConfig) {
	if p.ScanDelay != nil && *p.ScanDelay >= 0 {
		cfg.ScanDelay = *p.ScanDelay
	}
	if p.UploadDelay != nil && *p.UploadDelay >= 0 {
		cfg.UploadDelay = *p.UploadDelay
	}
	if p.NamingLanguage != nil && *p.NamingLanguage != "" {
		cfg.NamingLanguage = *p.NamingLanguage
	}
	if p.UseCopy != nil {
		cfg.UseCopy = *p.UseCopy
	}
}

// MediaItem pairs a classification with the metadata naming needs.
type MediaItem struct {
	Classification classifier.Classification `json:"classification"`
	Title          string                    `json:"title"`
	Year           int                       `json:"year"`
	Subcategory    string                    `json:"subcategory"`
}

// State is everything a session knows.
type State struct {
	Source StorageConfig `json:"source"`
	Target StorageConfig `json:"target"`
	Config UserConfig    `json:"config"`

	ScannedFiles    []scanner.File              `json:"scanned_files,omitempty"`
	ScanSummary     *scanner.Result             `json:"scan_summary,omitempty"`
	Classifications []classifier.Classification `json:"classifications,omitempty"`
	ClassifySummary *classifier.Summary         `json:"classify_summary,omitempty"`
	MediaItems      []MediaItem                 `json:"media_items,omitempty"`
	FailedUploads   []materializer.FailedUpload `json:"failed_uploads,omitempty"`
}

// NewState returns a fresh session state with default knobs.
func NewState() *State {
	return &State{Config: DefaultUserConfig()}
}

// Delta is the slice of state an operation changed, echoed to the API
// caller alongside the message.
type Delta struct {
	Source          *StorageConfig              `json:"source,omitempty"`
	Target          *StorageConfig              `json:"target,omitempty"`
	Config          *UserConfig                 `json:"config,omitempty"`
	ScanSummary     *scanner.Result             `json:"scan_summary,omitempty"`
	ClassifySummary *classifier.Summary         `json:"classify_summary,omitempty"`
	OrganizeResult  *materializer.OrganizeResult `json:"organize_result,omitempty"`
	STRMResult      *materializer.STRMResult    `json:"strm_result,omitempty"`
	RetryResult     *materializer.RetryResult   `json:"retry_result,omitempty"`
	FailedUploads   []materializer.FailedUpload `json:"failed_uploads,omitempty"`
}
