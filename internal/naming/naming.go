// Package naming renders library file and folder names. All outputs
// pass through Sanitize so they are safe on every filesystem the
// storage backends may sit on.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/strmforge/strmforge/internal/media"
)

var (
	forbiddenRe = regexp.MustCompile(`[\\/:*?"<>|]`)
	multiDotRe  = regexp.MustCompile(`\.{2,}`)
)

// Sanitize rewrites a name so it contains no filesystem-hostile
// characters: forbidden characters become dots, tildes become dashes,
// apostrophes vanish, runs of dots collapse, and edge punctuation is
// trimmed.
func Sanitize(name string) string {
	name = forbiddenRe.ReplaceAllString(name, ".")
	name = strings.ReplaceAll(name, "~", "-")
	name = strings.ReplaceAll(name, "'", "")
	name = strings.Trim(name, "!")
	name = multiDotRe.ReplaceAllString(name, ".")
	return strings.Trim(name, ". ")
}

// dotted sanitizes a title and joins its words with dots, collapsing
// any runs the space replacement produces.
func dotted(title string) string {
	t := strings.ReplaceAll(Sanitize(title), " ", ".")
	return multiDotRe.ReplaceAllString(t, ".")
}

// EpisodeFileName renders "Title.S01.E02.mkv".
func EpisodeFileName(title string, season, episode int, ext string) string {
	return fmt.Sprintf("%s.S%02d.E%02d%s", dotted(title), season, episode, ext)
}

// MovieFileName renders "Title.2021.mkv"; an unknown year drops the
// year segment.
func MovieFileName(title string, year int, ext string) string {
	if year > 0 {
		return fmt.Sprintf("%s.%d%s", dotted(title), year, ext)
	}
	return dotted(title) + ext
}

// SubtitleFileName derives a subtitle name from its video's file name.
// The default subtitle carries no language tag so players pick it up
// automatically; secondary subtitles are tagged before the extension.
func SubtitleFileName(videoName, lang, subExt string, isDefault bool) string {
	base := videoName
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	if isDefault {
		return base + subExt
	}
	return base + "." + lang + subExt
}

// SeriesFolder renders "Title (2023)"; an unknown year gives just the
// title. Movie folders use the same shape.
func SeriesFolder(title string, year int) string {
	title = Sanitize(title)
	if year > 0 {
		return fmt.Sprintf("%s (%d)", title, year)
	}
	return title
}

// SeasonFolder renders "Season 01".
func SeasonFolder(season int) string {
	return fmt.Sprintf("Season %02d", season)
}

// StrmFileName swaps a video name's extension for .strm.
func StrmFileName(videoName string) string {
	if idx := strings.LastIndex(videoName, "."); idx > 0 {
		return videoName[:idx] + ".strm"
	}
	return videoName + ".strm"
}

// KindFolder is the top-level library folder for a media kind.
func KindFolder(kind media.Kind, lang media.Language) string {
	if lang == media.LangZH {
		if kind == media.Movie {
			return "电影"
		}
		return "剧集"
	}
	if kind == media.Movie {
		return "Movies"
	}
	return "TV"
}
