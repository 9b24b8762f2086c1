package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/strmforge/internal/resolver"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, zerolog.Nop())
}

func TestSearchTV(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "zh-CN", r.URL.Query().Get("language"), "defaults to Chinese")
		assert.Equal(t, "葬送的芙莉莲", r.URL.Query().Get("query"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"results":[
			{"id":209867,"name":"葬送的芙莉莲","original_name":"葬送のフリーレン","first_air_date":"2023-09-29","overview":"..."}
		],"total_pages":1,"total_results":1}`))
	})

	results, err := client.SearchTV(context.Background(), "葬送的芙莉莲")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(209867), results[0].ID)
	assert.Equal(t, "葬送的芙莉莲", results[0].Title)
	assert.Equal(t, 2023, results[0].Year)
}

func TestSearchMovie_YearFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "2021", r.URL.Query().Get("year"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"results":[
			{"id":438631,"title":"沙丘","original_title":"Dune","release_date":"2021-09-15"}
		],"total_pages":1,"total_results":1}`))
	})

	results, err := client.SearchMovie(context.Background(), "Dune", 2021)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2021, results[0].Year)
	assert.Equal(t, "Dune", results[0].OriginalTitle)
}

func TestGetSeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/209867", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":209867,"name":"葬送的芙莉莲","first_air_date":"2023-09-29",
			"status":"Returning Series","number_of_seasons":2,"number_of_episodes":28,
			"genres":[{"id":16,"name":"动画"},{"id":10765,"name":"Sci-Fi & Fantasy"}],
			"seasons":[
				{"season_number":0,"name":"特别篇","episode_count":2},
				{"season_number":1,"name":"第 1 季","episode_count":28}
			]
		}`))
	})

	series, err := client.GetSeries(context.Background(), 209867)
	require.NoError(t, err)
	assert.Equal(t, 2, series.SeasonCount)
	assert.Equal(t, []string{"动画", "Sci-Fi & Fantasy"}, series.Genres)
	require.Len(t, series.Seasons, 2)
	assert.Equal(t, 28, series.Seasons[1].EpisodeCount)
}

func TestGetAllSeasons_SkipsFailedSeason(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/tv/100":
			w.Write([]byte(`{"id":100,"name":"Show","seasons":[
				{"season_number":1,"episode_count":2},
				{"season_number":2,"episode_count":2}
			]}`))
		case "/tv/100/season/1":
			w.Write([]byte(`{"season_number":1,"episodes":[
				{"episode_number":1,"season_number":1,"name":"Pilot"},
				{"episode_number":2,"season_number":1,"name":"Two"}
			]}`))
		case "/tv/100/season/2":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_code":34,"status_message":"not found"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	seasons, err := client.GetAllSeasons(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, seasons, 1, "failed season is skipped, not fatal")
	assert.Equal(t, 1, seasons[0].SeasonNumber)
	assert.Len(t, seasons[0].Episodes, 2)
}

func TestSeasons_ResolverShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/tv/100":
			w.Write([]byte(`{"id":100,"seasons":[{"season_number":1,"episode_count":2}]}`))
		case "/tv/100/season/1":
			w.Write([]byte(`{"season_number":1,"episodes":[
				{"episode_number":1,"season_number":1},
				{"episode_number":2,"season_number":1}
			]}`))
		}
	})

	seasons, err := client.Seasons(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []resolver.Season{{Number: 1, Episodes: []int{1, 2}}}, seasons)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrAPIError},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"status_code":1,"status_message":"nope"}`))
			})
			_, err := client.GetSeries(context.Background(), 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())
	assert.False(t, client.IsConfigured())

	_, err := client.SearchTV(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}
