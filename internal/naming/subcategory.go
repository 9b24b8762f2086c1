package naming

import (
	"strings"

	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/pathutil"
)

// Subcategory groups titles under the library's top-level folders.
type Subcategory string

const (
	SubAnimation   Subcategory = "animation"
	SubDocumentary Subcategory = "documentary"
	SubMusic       Subcategory = "music"
	SubVariety     Subcategory = "variety"
	SubDefault     Subcategory = "default"
)

// subcategoryRules are checked in order; the first genre keyword hit
// wins. Keywords cover both TMDB's English genre names and their
// Chinese translations.
var subcategoryRules = []struct {
	sub      Subcategory
	keywords []string
}{
	{SubAnimation, []string{"Animation", "动画"}},
	{SubDocumentary, []string{"Documentary", "纪录片", "纪录"}},
	{SubMusic, []string{"Music", "音乐"}},
	{SubVariety, []string{"Reality", "Talk", "真人秀", "脱口秀"}},
}

// SubcategoryFromGenres maps provider genres onto a subcategory.
func SubcategoryFromGenres(genres []string) Subcategory {
	for _, rule := range subcategoryRules {
		for _, g := range genres {
			for _, kw := range rule.keywords {
				if strings.Contains(strings.ToLower(g), strings.ToLower(kw)) {
					return rule.sub
				}
			}
		}
	}
	return SubDefault
}

var subcategoryNames = map[media.Language]map[media.Kind]map[Subcategory]string{
	media.LangZH: {
		media.TV: {
			SubAnimation: "动漫", SubDocumentary: "纪录片", SubMusic: "音乐",
			SubVariety: "综艺", SubDefault: "电视剧",
		},
		media.Movie: {
			SubAnimation: "动漫", SubDocumentary: "纪录片", SubMusic: "音乐",
			SubVariety: "综艺", SubDefault: "电影",
		},
	},
	media.LangEN: {
		media.TV: {
			SubAnimation: "Animation", SubDocumentary: "Documentary", SubMusic: "Music",
			SubVariety: "Variety", SubDefault: "TV Shows",
		},
		media.Movie: {
			SubAnimation: "Animation", SubDocumentary: "Documentary", SubMusic: "Music",
			SubVariety: "Variety", SubDefault: "Movies",
		},
	},
}

// SubcategoryName renders a subcategory folder name in the configured
// language.
func SubcategoryName(sub Subcategory, kind media.Kind, lang media.Language) string {
	if byKind, ok := subcategoryNames[lang]; ok {
		if names, ok := byKind[kind]; ok {
			if name, ok := names[sub]; ok {
				return name
			}
		}
	}
	return subcategoryNames[media.LangEN][kind][SubDefault]
}

// TargetPath builds root/kindFolder/subcategoryName, the directory a
// title's folder lands in.
func TargetPath(root string, kind media.Kind, sub Subcategory, lang media.Language) string {
	return pathutil.Join(root, KindFolder(kind, lang), SubcategoryName(sub, kind, lang))
}
