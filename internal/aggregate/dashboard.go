package aggregate

import "github.com/wesm/insightview/internal/insight"

// Dashboard holds every chart aggregate for one record
// collection.
type Dashboard struct {
	Records           int              `json:"records"`
	SectorCounts      []Count          `json:"sector_counts"`
	SectorCountsFirst []Count          `json:"sector_counts_first_seen"`
	TopicFrequency    []Count          `json:"topic_frequency"`
	TopicCountsFirst  []Count          `json:"topic_counts_first_seen"`
	Regions           Distribution     `json:"regions"`
	Bubbles           []BubblePoint    `json:"bubbles"`
	BubbleScale       SqrtScale        `json:"bubble_scale"`
	Scatter           []ScatterPoint   `json:"scatter"`
	YearlyIntensity   []YearTotal      `json:"yearly_intensity"`
	CountryIntensity  []CountryAverage `json:"country_intensity"`
	Recent            []insight.Record `json:"recent"`
}

// Compute runs every aggregation over recs. Each aggregation
// makes its own pass; nothing is shared between them.
func Compute(recs []insight.Record) Dashboard {
	bubbles := BubblePoints(recs)
	return Dashboard{
		Records:           len(recs),
		SectorCounts:      SectorCounts(recs),
		SectorCountsFirst: SectorCountsFirstSeen(recs),
		TopicFrequency:    TopicFrequency(recs),
		TopicCountsFirst:  TopicCountsFirstSeen(recs),
		Regions:           RegionDistribution(recs),
		Bubbles:           bubbles,
		BubbleScale:       RadiusScale(bubbles),
		Scatter:           ScatterPoints(recs),
		YearlyIntensity:   YearlyIntensity(recs),
		CountryIntensity:  CountryIntensity(recs),
		Recent:            RecentRecords(recs, RecentCap),
	}
}
