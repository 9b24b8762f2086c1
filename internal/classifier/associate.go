package classifier

import (
	"regexp"

	"github.com/strmforge/strmforge/internal/pathutil"
	"github.com/strmforge/strmforge/internal/scanner"
)

var (
	mediaExtRe = regexp.MustCompile(`(?i)\.(srt|ass|ssa|sub|mkv|mp4|avi|wmv|flv|mov)$`)
	langTagRe  = regexp.MustCompile(`(?i)\.(chs|cht|chi|eng|jpn|jap|kor|und|sc|tc|scjp|tcjp|chtjp|chsjp)$`)
)

// subtitlePriority orders languages for default-subtitle selection;
// lower wins. Simplified Chinese variants first, then traditional,
// English, Japanese, finally untagged. Anything else sorts last.
var subtitlePriority = map[string]int{
	"chs": 0, "sc": 1, "chsjp": 2, "scjp": 3,
	"cht": 4, "tc": 5, "chtjp": 6, "tcjp": 7,
	"eng": 8, "en": 9, "jpn": 10, "jap": 11, "jp": 12, "und": 13,
}

const unknownPriority = 999

func priorityOf(lang string) int {
	if p, ok := subtitlePriority[lang]; ok {
		return p
	}
	return unknownPriority
}

// baseKey reduces a file name to the stem shared between a video and
// its subtitles: extension off, then any trailing language tag off.
func baseKey(name string) string {
	name = mediaExtRe.ReplaceAllString(name, "")
	return langTagRe.ReplaceAllString(name, "")
}

type dirBase struct {
	dir  string
	base string
}

// Associate attaches each scanned subtitle to the classified video
// sharing its directory and base name, and flags the best-priority
// subtitle of every video as the default.
func Associate(classifications []Classification, files []scanner.File) {
	index := make(map[dirBase][]scanner.File)
	for _, f := range files {
		if f.Type != scanner.TypeSubtitle {
			continue
		}
		key := dirBase{pathutil.Dir(f.Path), baseKey(f.Name)}
		index[key] = append(index[key], f)
	}

	for i := range classifications {
		cl := &classifications[i]
		key := dirBase{pathutil.Dir(cl.SourcePath), baseKey(cl.FileName)}
		subs := index[key]
		if len(subs) == 0 {
			continue
		}

		best := -1
		for j, s := range subs {
			cl.Subtitles = append(cl.Subtitles, SubtitleFile{
				Path:     s.Path,
				Name:     s.Name,
				Language: s.Language,
			})
			if best < 0 || priorityOf(s.Language) < priorityOf(subs[best].Language) {
				best = j
			}
		}
		cl.Subtitles[best].IsDefault = true
	}
}
