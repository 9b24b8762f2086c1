// Package classifier assigns scanned video files to series episodes or
// movies using explicit user rules and resolver mappings. There is
// deliberately no fuzzy matching: a file either matches a rule and
// resolves cleanly, or it is reported unmatched with a reason.
package classifier

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/resolver"
	"github.com/strmforge/strmforge/internal/scanner"
)

// Status is the outcome of classifying one file. Unmatched means the
// rules or the episode table had no answer for it; error means the
// file could not even be looked up (no extractable number, no mapping).
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusError     Status = "error"
)

// Reasons attached to unmatched and errored files, also summary keys.
const (
	ReasonNoRule    = "no rule"
	ReasonNoNumber  = "no number"
	ReasonNoMapping = "no mapping"
	ReasonNotInMap  = "episode not in mapping"
)

// SubtitleFile is a subtitle attached to a classified video.
type SubtitleFile struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Language  string `json:"language"`
	IsDefault bool   `json:"is_default"`
}

// Classification is the outcome for one video file.
type Classification struct {
	SourcePath      string         `json:"source_path"`
	FileName        string         `json:"file_name"`
	Status          Status         `json:"status"`
	Reason          string         `json:"reason,omitempty"`
	MediaType       media.Kind     `json:"media_type,omitempty"`
	SeriesID        int64          `json:"series_id,omitempty"`
	ExtractedNumber int            `json:"extracted_number,omitempty"` // raw number from the file name
	Season          int            `json:"season,omitempty"`
	Episode         int            `json:"episode,omitempty"` // canonical episode number
	Cumulative      int            `json:"cumulative,omitempty"`
	OutputName      string         `json:"output_name,omitempty"` // "S01E05"
	Subtitles       []SubtitleFile `json:"subtitles,omitempty"`
}

// IsMatched reports whether the file resolved to a library placement.
func (c Classification) IsMatched() bool {
	return c.Status == StatusMatched
}

// Summary counts classification outcomes per reason.
type Summary struct {
	Total     int            `json:"total"`
	Matched   int            `json:"matched"`
	Unmatched int            `json:"unmatched"`
	Errors    int            `json:"errors"`
	Reasons   map[string]int `json:"reasons,omitempty"`
}

// Classifier applies rules to scan results.
type Classifier struct {
	logger zerolog.Logger
}

// New creates a classifier.
func New(logger zerolog.Logger) *Classifier {
	return &Classifier{logger: logger.With().Str("component", "classifier").Logger()}
}

// Classify runs every video file through the rules. mappings carries
// the resolver table per series id; subtitle files from the same scan
// are associated afterwards via Associate.
func (c *Classifier) Classify(files []scanner.File, rules []Rule, mappings map[int64]*resolver.Mapping) ([]Classification, Summary) {
	var results []Classification
	summary := Summary{Reasons: make(map[string]int)}

	for _, f := range files {
		if f.Type != scanner.TypeVideo {
			continue
		}
		cl := c.classifyOne(f, rules, mappings)
		summary.Total++
		switch cl.Status {
		case StatusMatched:
			summary.Matched++
		case StatusError:
			summary.Errors++
			summary.Reasons[cl.Reason]++
		default:
			summary.Unmatched++
			summary.Reasons[cl.Reason]++
		}
		results = append(results, cl)
	}

	c.logger.Info().
		Int("total", summary.Total).
		Int("matched", summary.Matched).
		Int("unmatched", summary.Unmatched).
		Int("errors", summary.Errors).
		Msg("classification finished")
	return results, summary
}

func (c *Classifier) classifyOne(f scanner.File, rules []Rule, mappings map[int64]*resolver.Mapping) Classification {
	cl := Classification{SourcePath: f.Path, FileName: f.Name, Status: StatusUnmatched}

	var rule *Rule
	for i := range rules {
		if rules[i].Matches(f.Path, f.Name) {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		cl.Reason = ReasonNoRule
		return cl
	}

	cl.MediaType = rule.MediaType
	cl.SeriesID = rule.SeriesID

	if rule.MediaType == media.Movie {
		cl.Status = StatusMatched
		return cl
	}

	num := ExtractEpisodeNumber(f.Name)
	if num == 0 {
		cl.Status = StatusError
		cl.Reason = ReasonNoNumber
		return cl
	}
	cl.ExtractedNumber = num

	mapping := mappings[rule.SeriesID]
	if mapping == nil {
		cl.Status = StatusError
		cl.Reason = ReasonNoMapping
		return cl
	}

	cumulative, season, err := parseContext(rule.Context)
	if err != nil {
		cl.Status = StatusError
		cl.Reason = err.Error()
		return cl
	}

	var info resolver.EpisodeInfo
	var ok bool
	if cumulative {
		info, ok = mapping.ByCumulative(num)
	} else {
		info, ok = mapping.BySeasonEpisode(season, num)
	}
	if !ok {
		cl.Reason = ReasonNotInMap
		return cl
	}

	cl.Status = StatusMatched
	cl.Season = info.Season
	cl.Episode = info.CanonicalEpisode
	cl.Cumulative = info.Cumulative
	cl.OutputName = fmt.Sprintf("S%02dE%02d", info.Season, info.CanonicalEpisode)
	return cl
}
