package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/strmforge/strmforge/internal/classifier"
	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/naming"
	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/resolver"
	"github.com/strmforge/strmforge/internal/session"
)

// titleMeta is the per-title metadata classification resolves once and
// reuses across every file of the same series or movie.
type titleMeta struct {
	title       string
	year        int
	subcategory naming.Subcategory
}

// Classify runs the scanned files through the rules, resolves episode
// numbering through the metadata provider and builds the media items
// that organize and STRM generation consume.
func (o *Orchestrator) Classify(ctx context.Context, sessionID string, rules []classifier.Rule) (string, *session.Delta, error) {
	state, err := o.store.Get(sessionID)
	if err != nil {
		return "", nil, err
	}
	if len(state.ScannedFiles) == 0 {
		return "", nil, fmt.Errorf("nothing scanned yet")
	}
	if len(rules) == 0 {
		return "", nil, fmt.Errorf("at least one rule is required")
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return "", nil, err
		}
	}

	activityID := uuid.NewString()
	o.track(func() {
		o.progress.Start(activityID, sessionID, progress.ActivityTypeClassify, "Classifying files")
	})

	mappings := o.buildMappings(ctx, rules)

	files := state.ScannedFiles
	classifications, summary := o.classifier.Classify(files, rules, mappings)
	classifier.Associate(classifications, files)

	items := o.buildMediaItems(ctx, classifications)

	err = o.store.Update(ctx, sessionID, func(s *session.State) {
		s.Classifications = classifications
		s.ClassifySummary = &summary
		s.MediaItems = items
	})
	if err != nil {
		o.track(func() { o.progress.Fail(activityID, err.Error()) })
		return "", nil, err
	}

	msg := fmt.Sprintf("Classified %d of %d videos", summary.Matched, summary.Total)
	if n := summary.Unmatched + summary.Errors; n > 0 {
		msg += fmt.Sprintf(" (%d unmatched)", n)
	}
	o.track(func() { o.progress.Complete(activityID, msg) })
	o.history(ctx, sessionID, "classify", msg)
	return msg, &session.Delta{ClassifySummary: &summary}, nil
}

// buildMappings fetches the episode table for every TV rule's series.
// A series whose seasons cannot be fetched is logged and left out;
// its files come back as unmatched rather than failing the run.
func (o *Orchestrator) buildMappings(ctx context.Context, rules []classifier.Rule) map[int64]*resolver.Mapping {
	mappings := make(map[int64]*resolver.Mapping)
	for _, r := range rules {
		if r.MediaType != media.TV || r.SeriesID <= 0 {
			continue
		}
		if _, ok := mappings[r.SeriesID]; ok {
			continue
		}
		seriesID := r.SeriesID
		mapping, err := o.mappings.GetOrBuild(seriesID, o.tmdb.Name(), func() ([]resolver.Season, error) {
			return o.tmdb.Seasons(ctx, seriesID)
		})
		if err != nil {
			o.logger.Warn().Err(err).Int64("series_id", seriesID).Msg("episode mapping unavailable")
			continue
		}
		mappings[seriesID] = mapping
	}
	return mappings
}

// buildMediaItems attaches titles, years and subcategories to the
// matched classifications. Provider lookups are cached per title; a
// failed lookup falls back to the file name stem.
func (o *Orchestrator) buildMediaItems(ctx context.Context, classifications []classifier.Classification) []session.MediaItem {
	seriesMeta := make(map[int64]titleMeta)
	movieMeta := make(map[int64]titleMeta)

	var items []session.MediaItem
	for _, cl := range classifications {
		if !cl.IsMatched() {
			continue
		}

		var meta titleMeta
		switch cl.MediaType {
		case media.TV:
			meta = o.seriesMeta(ctx, cl.SeriesID, seriesMeta)
		case media.Movie:
			meta = o.movieMeta(ctx, cl.SeriesID, movieMeta)
		}
		if meta.title == "" {
			meta.title = fileStem(cl.FileName)
			meta.subcategory = naming.SubDefault
		}

		items = append(items, session.MediaItem{
			Classification: cl,
			Title:          meta.title,
			Year:           meta.year,
			Subcategory:    string(meta.subcategory),
		})
	}
	return items
}

func (o *Orchestrator) seriesMeta(ctx context.Context, id int64, cache map[int64]titleMeta) titleMeta {
	if id <= 0 {
		return titleMeta{}
	}
	if meta, ok := cache[id]; ok {
		return meta
	}

	var meta titleMeta
	series, err := o.tmdb.GetSeries(ctx, id)
	if err != nil {
		o.logger.Warn().Err(err).Int64("series_id", id).Msg("series metadata unavailable")
	} else {
		meta = titleMeta{
			title:       series.Title,
			year:        series.Year,
			subcategory: naming.SubcategoryFromGenres(series.Genres),
		}
	}
	cache[id] = meta
	return meta
}

func (o *Orchestrator) movieMeta(ctx context.Context, id int64, cache map[int64]titleMeta) titleMeta {
	if id <= 0 {
		return titleMeta{}
	}
	if meta, ok := cache[id]; ok {
		return meta
	}

	var meta titleMeta
	movie, err := o.tmdb.GetMovie(ctx, id)
	if err != nil {
		o.logger.Warn().Err(err).Int64("movie_id", id).Msg("movie metadata unavailable")
	} else {
		meta = titleMeta{
			title:       movie.Title,
			year:        movie.Year,
			subcategory: naming.SubcategoryFromGenres(movie.Genres),
		}
	}
	cache[id] = meta
	return meta
}

// fileStem strips the extension off a file name.
func fileStem(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
