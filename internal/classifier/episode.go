package classifier

import (
	"regexp"
	"strconv"
)

// codecStripRe removes the codec tokens whose digits would otherwise
// be mistaken for episode numbers (x265, h.264 leftovers, Ma10p...).
var codecStripRe = regexp.MustCompile(`(?i)[xh]\.?26[45]|HEVC|AVC|Ma10p|10bit`)

// episodePatterns are tried in order; the first capture whose value
// lies in [1,999] wins. The codec strip above stands in for the
// lookbehind other engines would use on pattern two.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)EP\.?(\d{2,4})`),
	regexp.MustCompile(`(?i)(?:^|[^xh])E(\d{2,4})`),
	regexp.MustCompile(`第(\d{1,4})[集话話]`),
	regexp.MustCompile(`\[(\d{2,4})\]`),
	regexp.MustCompile(`[.\s\-_](\d{2,4})[.\s\-_\[]`),
	regexp.MustCompile(`(?i)S\d+E(\d{2,4})`),
}

// ExtractEpisodeNumber pulls the episode number out of a release file
// name. Returns 0 when no plausible number is found. Pure pattern
// matching, no guessing: a name that doesn't match stays unmatched.
func ExtractEpisodeNumber(name string) int {
	name = codecStripRe.ReplaceAllString(name, "")

	for _, re := range episodePatterns {
		for _, m := range re.FindAllStringSubmatch(name, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n >= 1 && n <= 999 {
				return n
			}
		}
	}
	return 0
}
