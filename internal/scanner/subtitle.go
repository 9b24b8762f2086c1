package scanner

import (
	"regexp"
	"strings"
)

var subtitleExtRe = regexp.MustCompile(`(?i)\.(srt|ass|ssa|sub)$`)

// compoundCodes are bilingual tags kept verbatim; they must be checked
// before the single-language aliases so "scjp" never collapses to "sc".
var compoundCodes = []string{"chs_jp", "cht_jp", "chsjp", "chtjp", "scjp", "tcjp"}

// languageAliases maps the tag soup found in release names onto the
// canonical codes used for subtitle selection.
var languageAliases = []struct {
	tag  string
	lang string
}{
	{"zh-cn", "chs"}, {"chs", "chs"}, {"chi", "chs"}, {"zho", "chs"}, {"sc", "chs"}, {"gb", "chs"},
	{"zh-tw", "cht"}, {"cht", "cht"}, {"big5", "cht"}, {"tc", "cht"},
	{"eng", "eng"}, {"en", "eng"},
	{"jpn", "jpn"}, {"jap", "jpn"}, {"jp", "jpn"}, {"ja", "jpn"},
	{"kor", "kor"}, {"ko", "kor"},
}

func lookupLanguageTag(tok string) (string, bool) {
	for _, c := range compoundCodes {
		if tok == c {
			return c, true
		}
	}
	for _, a := range languageAliases {
		if tok == a.tag {
			return a.lang, true
		}
	}
	return "", false
}

// SubtitleLanguage extracts the language tag from a subtitle file name.
// The token after the last dot (extension removed) is checked first;
// failing that, tags embedded as ".tag." or "_tag_" are searched,
// compounds before single languages. Unknown names return "und".
func SubtitleLanguage(name string) string {
	base := subtitleExtRe.ReplaceAllString(name, "")
	lower := strings.ToLower(base)

	if idx := strings.LastIndex(lower, "."); idx >= 0 {
		if lang, ok := lookupLanguageTag(lower[idx+1:]); ok {
			return lang
		}
	}

	for _, c := range compoundCodes {
		if strings.Contains(lower, "."+c+".") || strings.Contains(lower, "_"+c+"_") {
			return c
		}
	}
	for _, a := range languageAliases {
		if strings.Contains(lower, "."+a.tag+".") || strings.Contains(lower, "_"+a.tag+"_") {
			return a.lang
		}
	}
	return "und"
}
