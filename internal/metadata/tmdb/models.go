package tmdb

// Wire types, lowercase because only the normalized results leave the
// package.

type searchTVResponse struct {
	Page         int        `json:"page"`
	Results      []tvResult `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

type tvResult struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   *string `json:"poster_path"`
}

type tvDetails struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	OriginalName     string        `json:"original_name"`
	Overview         string        `json:"overview"`
	FirstAirDate     string        `json:"first_air_date"`
	PosterPath       *string       `json:"poster_path"`
	Status           string        `json:"status"`
	Genres           []genre       `json:"genres"`
	NumberOfSeasons  int           `json:"number_of_seasons"`
	NumberOfEpisodes int           `json:"number_of_episodes"`
	Seasons          []seasonEntry `json:"seasons"`
}

type searchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []movieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type movieResult struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    *string `json:"poster_path"`
}

type movieDetails struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    *string `json:"poster_path"`
	Runtime       int     `json:"runtime"`
	Genres        []genre `json:"genres"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type seasonEntry struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
	SeasonNumber int    `json:"season_number"`
}

type seasonDetails struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	AirDate      string           `json:"air_date"`
	SeasonNumber int              `json:"season_number"`
	Episodes     []episodeDetails `json:"episodes"`
}

type episodeDetails struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	Runtime       int    `json:"runtime"`
}

type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

// SeriesResult is the normalized series result returned by the client.
type SeriesResult struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	OriginalName string          `json:"original_name,omitempty"`
	Year         int             `json:"year"`
	Overview     string          `json:"overview"`
	PosterURL    string          `json:"poster_url,omitempty"`
	Genres       []string        `json:"genres,omitempty"`
	Status       string          `json:"status,omitempty"`
	SeasonCount  int             `json:"season_count,omitempty"`
	EpisodeCount int             `json:"episode_count,omitempty"`
	Seasons      []SeasonSummary `json:"seasons,omitempty"`
}

// SeasonSummary is the per-season line in series details.
type SeasonSummary struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date,omitempty"`
}

// MovieResult is the normalized movie result returned by the client.
type MovieResult struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	Year          int      `json:"year"`
	Overview      string   `json:"overview"`
	PosterURL     string   `json:"poster_url,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Runtime       int      `json:"runtime,omitempty"`
}

// SeasonResult is the normalized season result with episodes.
type SeasonResult struct {
	SeasonNumber int             `json:"season_number"`
	Name         string          `json:"name"`
	Overview     string          `json:"overview,omitempty"`
	AirDate      string          `json:"air_date,omitempty"`
	Episodes     []EpisodeResult `json:"episodes"`
}

// EpisodeResult is the normalized episode result.
type EpisodeResult struct {
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	Title         string `json:"title"`
	Overview      string `json:"overview,omitempty"`
	AirDate       string `json:"air_date,omitempty"`
	Runtime       int    `json:"runtime,omitempty"`
}
