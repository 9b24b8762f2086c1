// Package resolver builds the episode numbering tables that translate
// the numbers found in file names into a series' canonical
// season/episode coordinates. Two lookups are supported: by cumulative
// number across all regular seasons, and by (season, position within
// season). Specials (season 0) never participate in cumulative
// numbering.
package resolver

import (
	"fmt"
	"sort"
	"sync"
)

// Season is one provider season: its number and the canonical episode
// numbers in broadcast order.
type Season struct {
	Number   int
	Episodes []int
}

// EpisodeInfo locates one episode in every numbering scheme.
type EpisodeInfo struct {
	Season           int `json:"season"`
	EpisodeInSeason  int `json:"episode_in_season"` // 1-based position within the season
	CanonicalEpisode int `json:"canonical_episode"` // provider's episode number
	Cumulative       int `json:"cumulative"`        // running count across seasons
}

type seasonEpisodeKey struct {
	season  int
	episode int
}

// Mapping holds both lookup tables for one series.
type Mapping struct {
	byCumulative    map[int]EpisodeInfo
	bySeasonEpisode map[seasonEpisodeKey]EpisodeInfo
	total           int
}

// Build constructs a mapping from provider seasons. Seasons are
// processed in ascending order; season 0 is skipped. The cumulative
// number increases strictly from 1 across all regular episodes.
func Build(seasons []Season) *Mapping {
	ordered := make([]Season, 0, len(seasons))
	for _, s := range seasons {
		if s.Number == 0 {
			continue
		}
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	m := &Mapping{
		byCumulative:    make(map[int]EpisodeInfo),
		bySeasonEpisode: make(map[seasonEpisodeKey]EpisodeInfo),
	}
	cumulative := 0
	for _, season := range ordered {
		for idx, canonical := range season.Episodes {
			cumulative++
			info := EpisodeInfo{
				Season:           season.Number,
				EpisodeInSeason:  idx + 1,
				CanonicalEpisode: canonical,
				Cumulative:       cumulative,
			}
			m.byCumulative[cumulative] = info
			m.bySeasonEpisode[seasonEpisodeKey{season.Number, idx + 1}] = info
		}
	}
	m.total = cumulative
	return m
}

// ByCumulative resolves a cumulative episode number.
func (m *Mapping) ByCumulative(n int) (EpisodeInfo, bool) {
	info, ok := m.byCumulative[n]
	return info, ok
}

// BySeasonEpisode resolves a (season, position-in-season) pair.
func (m *Mapping) BySeasonEpisode(season, episode int) (EpisodeInfo, bool) {
	info, ok := m.bySeasonEpisode[seasonEpisodeKey{season, episode}]
	return info, ok
}

// TotalEpisodes is the number of regular episodes across all seasons.
func (m *Mapping) TotalEpisodes() int {
	return m.total
}

// Cache interns mappings per (series, kind). The orchestrator owns one
// cache per process; tests build their own.
type Cache struct {
	mu       sync.Mutex
	mappings map[string]*Mapping
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{mappings: make(map[string]*Mapping)}
}

func cacheKey(seriesID int64, kind string) string {
	return fmt.Sprintf("%d|%s", seriesID, kind)
}

// GetOrBuild returns the cached mapping for the series, building and
// storing it on first use.
func (c *Cache) GetOrBuild(seriesID int64, kind string, build func() ([]Season, error)) (*Mapping, error) {
	c.mu.Lock()
	if m, ok := c.mappings[cacheKey(seriesID, kind)]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	seasons, err := build()
	if err != nil {
		return nil, err
	}
	m := Build(seasons)

	c.mu.Lock()
	c.mappings[cacheKey(seriesID, kind)] = m
	c.mu.Unlock()
	return m, nil
}

// Clear drops every cached mapping.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappings = make(map[string]*Mapping)
}
