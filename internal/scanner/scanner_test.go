package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/strmforge/internal/storage/mock"
)

func newTree() *mock.Client {
	c := mock.New()
	c.AddFile("/anime/Frieren/[Sub] Frieren - 01 [1080p].mkv", nil)
	c.AddFile("/anime/Frieren/[Sub] Frieren - 01 [1080p].chs.srt", nil)
	c.AddFile("/anime/Frieren/[Sub] Frieren - 01 [1080p].cht.srt", nil)
	c.AddFile("/anime/Frieren/readme.txt", nil)
	c.AddFile("/anime/Frieren/extras/NCOP.mkv", nil)
	c.AddFile("/movies/Dune (2021)/Dune.2021.mkv", nil)
	return c
}

func TestScan_Recursive(t *testing.T) {
	s := New(newTree(), zerolog.Nop())

	result, err := s.Scan(context.Background(), "/anime", Options{Recursive: true, MaxDepth: 5}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Videos)
	assert.Equal(t, 2, result.Subtitles)
	assert.Equal(t, 1, result.Others)
	assert.False(t, result.Truncated)

	langs := map[string]string{}
	for _, f := range result.Files {
		if f.Type == TypeSubtitle {
			langs[f.Name] = f.Language
		}
	}
	assert.Equal(t, "chs", langs["[Sub] Frieren - 01 [1080p].chs.srt"])
	assert.Equal(t, "cht", langs["[Sub] Frieren - 01 [1080p].cht.srt"])
}

func TestScan_NonRecursiveStaysShallow(t *testing.T) {
	s := New(newTree(), zerolog.Nop())

	result, err := s.Scan(context.Background(), "/anime/Frieren", Options{Recursive: false}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Videos, "extras/NCOP.mkv must not be visited")
}

func TestScan_MaxDepthPrunes(t *testing.T) {
	s := New(newTree(), zerolog.Nop())

	result, err := s.Scan(context.Background(), "/anime", Options{Recursive: true, MaxDepth: 1}, nil)
	require.NoError(t, err)
	// depth 1 reaches /anime/Frieren but not /anime/Frieren/extras
	assert.Equal(t, 1, result.Videos)
}

func TestScan_MaxDepthZeroListsOnlyRoot(t *testing.T) {
	s := New(newTree(), zerolog.Nop())

	result, err := s.Scan(context.Background(), "/anime/Frieren", Options{Recursive: true, MaxDepth: 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dirs)
	assert.Equal(t, 1, result.Videos, "extras/NCOP.mkv sits one level down")
}

func TestScan_MaxFilesTruncates(t *testing.T) {
	s := New(newTree(), zerolog.Nop())

	result, err := s.Scan(context.Background(), "/anime", Options{Recursive: true, MaxDepth: -1, MaxFiles: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, result.Files, 2)
	assert.True(t, result.Truncated)
}

func TestScan_FailingDirIsSkipped(t *testing.T) {
	tree := newTree()
	tree.ListErrs["/anime/Frieren/extras"] = errors.New("boom")
	s := New(tree, zerolog.Nop())

	result, err := s.Scan(context.Background(), "/anime", Options{Recursive: true, MaxDepth: -1}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.FailedDirs, "/anime/Frieren/extras")
	assert.Equal(t, 1, result.Videos)
}

func TestScan_DelaySkipsFirstListing(t *testing.T) {
	s := New(newTree(), zerolog.Nop())
	var sleeps int
	s.sleep = func(time.Duration) { sleeps++ }

	_, err := s.Scan(context.Background(), "/anime", Options{Recursive: true, MaxDepth: -1, ScanDelay: time.Second}, nil)
	require.NoError(t, err)
	// /anime, /anime/Frieren, /anime/Frieren/extras listed; first has no delay
	assert.Equal(t, 2, sleeps)
}

func TestScan_ExcludePatterns(t *testing.T) {
	tree := mock.New()
	tree.AddFile("/m/Movie.2020.mkv", nil)
	tree.AddFile("/m/Movie.2020.SAMPLE.mkv", nil)
	s := New(tree, zerolog.Nop())

	result, err := s.Scan(context.Background(), "/m", Options{Exclude: []string{"sample"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Videos)
}

func TestSubtitleLanguage(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Show.S01E01.chs.srt", "chs"},
		{"Show.S01E01.SC.ass", "chs"},
		{"Show.S01E01.zh-cn.srt", "chs"},
		{"Show.S01E01.cht.srt", "cht"},
		{"Show.S01E01.big5.srt", "cht"},
		{"Show.S01E01.eng.srt", "eng"},
		{"Show.S01E01.en.srt", "eng"},
		{"Show.S01E01.jp.ass", "jpn"},
		{"Show.S01E01.ko.srt", "kor"},
		{"Show.S01E01.chs_jp.ass", "chs_jp"},
		{"Show.S01E01.scjp.ass", "scjp"},
		{"Show.S01E01.tcjp.ass", "tcjp"},
		{"Show_chs_Episode01.srt", "chs"},
		{"Show.chsjp.v2.ass", "chsjp"},
		{"Show.S01E01.srt", "und"},
		{"NoExtensionTag.ass", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubtitleLanguage(tt.name))
		})
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeVideo, TypeOf("a.MKV"))
	assert.Equal(t, TypeVideo, TypeOf("b.m2ts"))
	assert.Equal(t, TypeSubtitle, TypeOf("c.ass"))
	assert.Equal(t, TypeOther, TypeOf("d.nfo"))
}
