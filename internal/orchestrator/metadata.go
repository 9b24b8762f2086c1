package orchestrator

import (
	"context"
	"fmt"

	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/metadata/tmdb"
)

// SearchResults carries either series or movie hits, depending on what
// was searched.
type SearchResults struct {
	Series []tmdb.SeriesResult `json:"series,omitempty"`
	Movies []tmdb.MovieResult  `json:"movies,omitempty"`
}

// LookupMetadata searches the metadata provider so the user can find
// the right ID for a classification rule.
func (o *Orchestrator) LookupMetadata(ctx context.Context, kind media.Kind, query string, year int) (*SearchResults, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	switch kind {
	case media.TV:
		series, err := o.tmdb.SearchTV(ctx, query)
		if err != nil {
			return nil, err
		}
		return &SearchResults{Series: series}, nil
	case media.Movie:
		movies, err := o.tmdb.SearchMovie(ctx, query, year)
		if err != nil {
			return nil, err
		}
		return &SearchResults{Movies: movies}, nil
	default:
		return nil, fmt.Errorf("unknown media type %q", kind)
	}
}

// TitleDetails is the full provider record for one title.
type TitleDetails struct {
	Series *tmdb.SeriesResult `json:"series,omitempty"`
	Movie  *tmdb.MovieResult  `json:"movie,omitempty"`
}

// MetadataDetails fetches one title by provider ID, seasons included
// for series.
func (o *Orchestrator) MetadataDetails(ctx context.Context, kind media.Kind, id int64) (*TitleDetails, error) {
	switch kind {
	case media.TV:
		series, err := o.tmdb.GetSeries(ctx, id)
		if err != nil {
			return nil, err
		}
		return &TitleDetails{Series: series}, nil
	case media.Movie:
		movie, err := o.tmdb.GetMovie(ctx, id)
		if err != nil {
			return nil, err
		}
		return &TitleDetails{Movie: movie}, nil
	default:
		return nil, fmt.Errorf("unknown media type %q", kind)
	}
}
