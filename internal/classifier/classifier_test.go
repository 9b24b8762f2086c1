package classifier

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/pathutil"
	"github.com/strmforge/strmforge/internal/resolver"
	"github.com/strmforge/strmforge/internal/scanner"
	"github.com/strmforge/strmforge/internal/storage"
)

func TestExtractEpisodeNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"[Sub] Frieren - 01 [1080p].mkv", 1},
		{"Show.S01E05.1080p.mkv", 5},
		{"Show EP.12.mkv", 12},
		{"Show ep07.mkv", 7},
		{"进击的巨人 第3集.mp4", 3},
		{"进击的巨人 第1024集.mp4", 0}, // out of range
		{"Show [08].mkv", 8},
		{"Show E112 [720p].mkv", 112},
		{"Show - 123 [1080p].mkv", 123},
		// codec digits must never read as episodes
		{"Show.x265.mkv", 0},
		{"Show.h264.mkv", 0},
		{"Show.HEVC.Ma10p.mkv", 0},
		{"Show.x265.E26.mkv", 26},
		{"[1080p] Show.mkv", 0}, // 1080 out of range
		{"Movie.mkv", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEpisodeNumber(tt.name))
		})
	}
}

func videoFile(path string) scanner.File {
	return scanner.File{
		FileInfo: storage.FileInfo{Path: path, Name: pathutil.Base(path)},
		Type:     scanner.TypeVideo,
	}
}

func subFile(path, lang string) scanner.File {
	return scanner.File{
		FileInfo: storage.FileInfo{Path: path, Name: pathutil.Base(path)},
		Type:     scanner.TypeSubtitle,
		Language: lang,
	}
}

func twoSeasonMapping() map[int64]*resolver.Mapping {
	return map[int64]*resolver.Mapping{
		100: resolver.Build([]resolver.Season{
			{Number: 1, Episodes: []int{1, 2, 3, 4}},
			{Number: 2, Episodes: []int{1, 2, 3}},
		}),
	}
}

func TestClassify_CumulativeContext(t *testing.T) {
	c := New(zerolog.Nop())
	rules := []Rule{{PathPattern: "/anime/frieren", MediaType: media.TV, SeriesID: 100, Context: "cumulative"}}

	files := []scanner.File{videoFile("/anime/Frieren/[Sub] Frieren - 05 [1080p].mkv")}
	results, summary := c.Classify(files, rules, twoSeasonMapping())

	require.Len(t, results, 1)
	cl := results[0]
	require.Equal(t, StatusMatched, cl.Status)
	assert.Equal(t, 5, cl.ExtractedNumber)
	assert.Equal(t, 2, cl.Season)
	assert.Equal(t, 1, cl.Episode, "cumulative 5 is S02's first episode")
	assert.Equal(t, 5, cl.Cumulative)
	assert.Equal(t, "S02E01", cl.OutputName)
	assert.Equal(t, 1, summary.Matched)
}

func TestClassify_SeasonContext(t *testing.T) {
	c := New(zerolog.Nop())
	rules := []Rule{{PathPattern: "frieren", MediaType: media.TV, SeriesID: 100, Context: "season_2"}}

	files := []scanner.File{videoFile("/anime/Frieren S2/[Sub] Frieren - 02 [1080p].mkv")}
	results, _ := c.Classify(files, rules, twoSeasonMapping())

	require.Equal(t, StatusMatched, results[0].Status)
	assert.Equal(t, "S02E02", results[0].OutputName)
	assert.Equal(t, 6, results[0].Cumulative)
}

func TestClassify_MovieSkipsExtraction(t *testing.T) {
	c := New(zerolog.Nop())
	rules := []Rule{{PathPattern: "/movies", MediaType: media.Movie}}

	files := []scanner.File{videoFile("/movies/Dune.2021.mkv")}
	results, summary := c.Classify(files, rules, nil)

	require.Equal(t, StatusMatched, results[0].Status)
	assert.Zero(t, results[0].Season)
	assert.Zero(t, results[0].Episode)
	assert.Equal(t, 1, summary.Matched)
}

func TestClassify_UnmatchedAndErrorStatuses(t *testing.T) {
	c := New(zerolog.Nop())
	mapping := twoSeasonMapping()

	tests := []struct {
		name   string
		file   string
		rules  []Rule
		status Status
		reason string
	}{
		{"no rule", "/x/Show - 01.mkv", []Rule{{PathPattern: "/elsewhere", MediaType: media.TV, SeriesID: 100}}, StatusUnmatched, ReasonNoRule},
		{"no number", "/anime/Show.mkv", []Rule{{PathPattern: "/anime", MediaType: media.TV, SeriesID: 100}}, StatusError, ReasonNoNumber},
		{"no mapping", "/anime/Show - 01.mkv", []Rule{{PathPattern: "/anime", MediaType: media.TV, SeriesID: 999}}, StatusError, ReasonNoMapping},
		{"not in mapping", "/anime/Show - 99.mkv", []Rule{{PathPattern: "/anime", MediaType: media.TV, SeriesID: 100}}, StatusUnmatched, ReasonNotInMap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, summary := c.Classify([]scanner.File{videoFile(tt.file)}, tt.rules, mapping)
			assert.Equal(t, tt.status, results[0].Status)
			assert.Equal(t, tt.reason, results[0].Reason)
			assert.Equal(t, 1, summary.Reasons[tt.reason])
			if tt.status == StatusError {
				assert.Equal(t, 1, summary.Errors)
				assert.Zero(t, summary.Unmatched)
			} else {
				assert.Equal(t, 1, summary.Unmatched)
				assert.Zero(t, summary.Errors)
			}
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	c := New(zerolog.Nop())
	rules := []Rule{
		{FilePattern: "frieren", MediaType: media.TV, SeriesID: 100, Context: "season_1"},
		{MediaType: media.Movie}, // catch-all, must not shadow the first
	}

	files := []scanner.File{
		videoFile("/x/Frieren - 02.mkv"),
		videoFile("/x/Something Else.mkv"),
	}
	results, _ := c.Classify(files, rules, twoSeasonMapping())
	assert.Equal(t, media.TV, results[0].MediaType)
	assert.Equal(t, media.Movie, results[1].MediaType)
}

func TestAssociate_DefaultPriority(t *testing.T) {
	cls := []Classification{{
		SourcePath: "/anime/Show/Show - 01.mkv",
		FileName:   "Show - 01.mkv",
		Status:     StatusMatched,
	}}
	files := []scanner.File{
		subFile("/anime/Show/Show - 01.cht.srt", "cht"),
		subFile("/anime/Show/Show - 01.chs.srt", "chs"),
		subFile("/anime/Show/Show - 01.eng.srt", "eng"),
	}

	Associate(cls, files)
	require.Len(t, cls[0].Subtitles, 3)

	var def string
	for _, s := range cls[0].Subtitles {
		if s.IsDefault {
			def = s.Language
		}
	}
	assert.Equal(t, "chs", def, "simplified Chinese outranks traditional and English")
}

func TestAssociate_DifferentDirOrBaseNotAttached(t *testing.T) {
	cls := []Classification{{
		SourcePath: "/anime/Show/Show - 01.mkv",
		FileName:   "Show - 01.mkv",
	}}
	files := []scanner.File{
		subFile("/anime/Other/Show - 01.chs.srt", "chs"),
		subFile("/anime/Show/Show - 02.chs.srt", "chs"),
	}

	Associate(cls, files)
	assert.Empty(t, cls[0].Subtitles)
}

func TestAssociate_SingleUntaggedIsDefault(t *testing.T) {
	cls := []Classification{{
		SourcePath: "/m/Movie.mkv",
		FileName:   "Movie.mkv",
	}}
	Associate(cls, []scanner.File{subFile("/m/Movie.srt", "und")})
	require.Len(t, cls[0].Subtitles, 1)
	assert.True(t, cls[0].Subtitles[0].IsDefault)
}

func TestLoadRulesYAML(t *testing.T) {
	doc := []byte(`
rules:
  - name: frieren
    path_pattern: /anime/frieren
    media_type: tv
    series_id: 100
    context: season_1
  - name: movies
    path_pattern: /movies
    media_type: movie
`)
	rules, err := LoadRulesYAML(doc)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, media.TV, rules[0].MediaType)
	assert.Equal(t, int64(100), rules[0].SeriesID)

	_, err = LoadRulesYAML([]byte("rules:\n  - media_type: tv\n"))
	assert.Error(t, err, "tv rule without series_id must be rejected")

	_, err = LoadRulesYAML([]byte("rules:\n  - media_type: tv\n    series_id: 1\n    context: nonsense\n"))
	assert.Error(t, err)
}
