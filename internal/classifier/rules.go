package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strmforge/strmforge/internal/media"
)

// Rule matches files onto a series or movie. Patterns are plain
// case-insensitive substrings, never heuristics: an empty pattern
// matches everything, so rule order matters and the first hit wins.
type Rule struct {
	Name        string     `yaml:"name" json:"name,omitempty"`
	PathPattern string     `yaml:"path_pattern" json:"path_pattern,omitempty"`
	FilePattern string     `yaml:"file_pattern" json:"file_pattern,omitempty"`
	MediaType   media.Kind `yaml:"media_type" json:"media_type"`
	SeriesID    int64      `yaml:"series_id" json:"series_id,omitempty"`
	// Context tells the resolver how to read extracted numbers:
	// "cumulative" or "season_N".
	Context string `yaml:"context" json:"context,omitempty"`
}

// Matches reports whether the rule applies to a file.
func (r Rule) Matches(path, name string) bool {
	if r.PathPattern != "" && !strings.Contains(strings.ToLower(path), strings.ToLower(r.PathPattern)) {
		return false
	}
	if r.FilePattern != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(r.FilePattern)) {
		return false
	}
	return true
}

var seasonContextRe = regexp.MustCompile(`^season_(\d+)$`)

// parseContext splits a rule context into its mode. cumulative==true
// means numbers are series-wide; otherwise season carries the season
// the numbers count within.
func parseContext(ctx string) (cumulative bool, season int, err error) {
	if ctx == "" || ctx == "cumulative" {
		return true, 0, nil
	}
	if m := seasonContextRe.FindStringSubmatch(ctx); m != nil {
		n, _ := strconv.Atoi(m[1])
		return false, n, nil
	}
	return false, 0, fmt.Errorf("invalid rule context %q", ctx)
}

// Validate rejects rules the classifier could not apply.
func (r Rule) Validate() error {
	switch r.MediaType {
	case media.Movie:
		return nil
	case media.TV:
		if r.SeriesID <= 0 {
			return fmt.Errorf("tv rule %q needs a series_id", r.Name)
		}
		if _, _, err := parseContext(r.Context); err != nil {
			return fmt.Errorf("tv rule %q: %w", r.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("rule %q has unknown media_type %q", r.Name, r.MediaType)
	}
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRulesYAML parses a YAML rule document and validates every rule.
func LoadRulesYAML(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for _, r := range f.Rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}
