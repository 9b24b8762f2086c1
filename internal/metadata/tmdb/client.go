// Package tmdb is the TMDB metadata provider. It feeds series and
// season data to the episode resolver and genres to the library
// subcategory tables.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/resolver"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("title not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Config carries the TMDB connection settings.
type Config struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Language     string `mapstructure:"language"`
	Timeout      int    `mapstructure:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.themoviedb.org/3"
	}
	if c.ImageBaseURL == "" {
		c.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if c.Language == "" {
		c.Language = "zh-CN"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30
	}
}

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the TMDB API by making a configuration
// request.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/configuration", c.config.BaseURL)
	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return c.doRequest(ctx, endpoint, c.baseParams(), &result)
}

// SearchTV searches for TV series by query.
func (c *Client) SearchTV(ctx context.Context, query string) ([]SeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/tv", c.config.BaseURL)
	params := c.baseParams()
	params.Set("query", query)

	var response searchTVResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]SeriesResult, len(response.Results))
	for i, tv := range response.Results {
		results[i] = c.toSeriesResult(tv)
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("TV search completed")
	return results, nil
}

// SearchMovie searches for movies by query with optional year filter.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) ([]MovieResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	params := c.baseParams()
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var response searchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]MovieResult, len(response.Results))
	for i, movie := range response.Results {
		results[i] = c.toMovieResult(movie)
	}

	c.logger.Debug().
		Str("query", query).
		Int("year", year).
		Int("results", len(results)).
		Msg("Movie search completed")
	return results, nil
}

// GetSeries gets detailed TV series info by TMDB ID, including the
// season list and genres.
func (c *Client) GetSeries(ctx context.Context, id int64) (*SeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, id)
	var details tvDetails
	if err := c.doRequest(ctx, endpoint, c.baseParams(), &details); err != nil {
		return nil, err
	}

	result := c.tvDetailsToResult(details)

	c.logger.Debug().
		Int64("id", id).
		Str("title", result.Title).
		Int("seasons", result.SeasonCount).
		Msg("Got TV series details")
	return &result, nil
}

// GetMovie gets detailed movie info by TMDB ID.
func (c *Client) GetMovie(ctx context.Context, id int64) (*MovieResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	var details movieDetails
	if err := c.doRequest(ctx, endpoint, c.baseParams(), &details); err != nil {
		return nil, err
	}

	result := c.movieDetailsToResult(details)

	c.logger.Debug().
		Int64("id", id).
		Str("title", result.Title).
		Msg("Got movie details")
	return &result, nil
}

// GetSeasonDetails gets detailed info for a specific season including
// all episodes.
func (c *Client) GetSeasonDetails(ctx context.Context, seriesID int64, seasonNumber int) (*SeasonResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/tv/%d/season/%d", c.config.BaseURL, seriesID, seasonNumber)
	var details seasonDetails
	if err := c.doRequest(ctx, endpoint, c.baseParams(), &details); err != nil {
		return nil, err
	}

	result := seasonDetailsToResult(details)

	c.logger.Debug().
		Int64("series_id", seriesID).
		Int("season", seasonNumber).
		Int("episodes", len(result.Episodes)).
		Msg("Got season details")
	return &result, nil
}

// GetAllSeasons gets all seasons with episodes for a series. Seasons
// that fail to load are logged and skipped rather than failing the
// whole series.
func (c *Client) GetAllSeasons(ctx context.Context, seriesID int64) ([]SeasonResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, seriesID)
	var details tvDetails
	if err := c.doRequest(ctx, endpoint, c.baseParams(), &details); err != nil {
		return nil, err
	}

	results := make([]SeasonResult, 0, len(details.Seasons))
	for _, season := range details.Seasons {
		seasonResult, err := c.GetSeasonDetails(ctx, seriesID, season.SeasonNumber)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Int64("series_id", seriesID).
				Int("season", season.SeasonNumber).
				Msg("Failed to get season details, skipping")
			continue
		}
		results = append(results, *seasonResult)
	}

	c.logger.Debug().
		Int64("series_id", seriesID).
		Int("seasons", len(results)).
		Msg("Got all seasons")
	return results, nil
}

// Seasons adapts GetAllSeasons to the shape the episode resolver
// builds mappings from.
func (c *Client) Seasons(ctx context.Context, seriesID int64) ([]resolver.Season, error) {
	all, err := c.GetAllSeasons(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	seasons := make([]resolver.Season, 0, len(all))
	for _, s := range all {
		episodes := make([]int, len(s.Episodes))
		for i, ep := range s.Episodes {
			episodes[i] = ep.EpisodeNumber
		}
		seasons = append(seasons, resolver.Season{
			Number:   s.SeasonNumber,
			Episodes: episodes,
		})
	}
	return seasons, nil
}

// GetImageURL returns a full image URL for a given path and size.
// Size options: "w92", "w154", "w185", "w342", "w500", "w780",
// "original".
func (c *Client) GetImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("language", c.config.Language)
	return params
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) toSeriesResult(tv tvResult) SeriesResult {
	year := 0
	if len(tv.FirstAirDate) >= 4 {
		year, _ = strconv.Atoi(tv.FirstAirDate[:4])
	}

	result := SeriesResult{
		ID:           tv.ID,
		Title:        tv.Name,
		OriginalName: tv.OriginalName,
		Year:         year,
		Overview:     tv.Overview,
	}
	if tv.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*tv.PosterPath, "w500")
	}
	return result
}

func (c *Client) tvDetailsToResult(details tvDetails) SeriesResult {
	year := 0
	if len(details.FirstAirDate) >= 4 {
		year, _ = strconv.Atoi(details.FirstAirDate[:4])
	}

	genres := make([]string, len(details.Genres))
	for i, g := range details.Genres {
		genres[i] = g.Name
	}

	seasons := make([]SeasonSummary, len(details.Seasons))
	for i, s := range details.Seasons {
		seasons[i] = SeasonSummary{
			SeasonNumber: s.SeasonNumber,
			Name:         s.Name,
			EpisodeCount: s.EpisodeCount,
			AirDate:      s.AirDate,
		}
	}

	result := SeriesResult{
		ID:           details.ID,
		Title:        details.Name,
		OriginalName: details.OriginalName,
		Year:         year,
		Overview:     details.Overview,
		Genres:       genres,
		Status:       details.Status,
		SeasonCount:  details.NumberOfSeasons,
		EpisodeCount: details.NumberOfEpisodes,
		Seasons:      seasons,
	}
	if details.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*details.PosterPath, "w500")
	}
	return result
}

func (c *Client) toMovieResult(movie movieResult) MovieResult {
	year := 0
	if len(movie.ReleaseDate) >= 4 {
		year, _ = strconv.Atoi(movie.ReleaseDate[:4])
	}

	result := MovieResult{
		ID:            movie.ID,
		Title:         movie.Title,
		OriginalTitle: movie.OriginalTitle,
		Year:          year,
		Overview:      movie.Overview,
	}
	if movie.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*movie.PosterPath, "w500")
	}
	return result
}

func (c *Client) movieDetailsToResult(details movieDetails) MovieResult {
	year := 0
	if len(details.ReleaseDate) >= 4 {
		year, _ = strconv.Atoi(details.ReleaseDate[:4])
	}

	genres := make([]string, len(details.Genres))
	for i, g := range details.Genres {
		genres[i] = g.Name
	}

	result := MovieResult{
		ID:            details.ID,
		Title:         details.Title,
		OriginalTitle: details.OriginalTitle,
		Year:          year,
		Overview:      details.Overview,
		Genres:        genres,
		Runtime:       details.Runtime,
	}
	if details.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*details.PosterPath, "w500")
	}
	return result
}

func seasonDetailsToResult(details seasonDetails) SeasonResult {
	episodes := make([]EpisodeResult, len(details.Episodes))
	for i, ep := range details.Episodes {
		episodes[i] = EpisodeResult{
			EpisodeNumber: ep.EpisodeNumber,
			SeasonNumber:  ep.SeasonNumber,
			Title:         ep.Name,
			Overview:      ep.Overview,
			AirDate:       ep.AirDate,
			Runtime:       ep.Runtime,
		}
	}

	return SeasonResult{
		SeasonNumber: details.SeasonNumber,
		Name:         details.Name,
		Overview:     details.Overview,
		AirDate:      details.AirDate,
		Episodes:     episodes,
	}
}
