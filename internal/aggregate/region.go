package aggregate

import "github.com/wesm/insightview/internal/insight"

// labelThreshold is the minimum share, in percent, for a pie
// slice to get an outside label.
const labelThreshold = 4.0

// Distribution is a count per region over the filtered records.
// Slices keep first-seen order; nothing is truncated.
type Distribution struct {
	Slices []Count `json:"slices"`
	Total  int     `json:"total"`
}

// RegionDistribution counts records by region.
func RegionDistribution(recs []insight.Record) Distribution {
	slices := CountBy(recs, insight.Record.RegionValue)
	total := 0
	for _, s := range slices {
		total += s.Count
	}
	return Distribution{Slices: slices, Total: total}
}

// Map returns the distribution keyed by region.
func (d Distribution) Map() map[string]int {
	m := make(map[string]int, len(d.Slices))
	for _, s := range d.Slices {
		m[s.Key] = s.Count
	}
	return m
}

// Percent returns slice i's share of this distribution's total,
// not of the unfiltered record count.
func (d Distribution) Percent(i int) float64 {
	if d.Total == 0 || i < 0 || i >= len(d.Slices) {
		return 0
	}
	return float64(d.Slices[i].Count) / float64(d.Total) * 100
}

// Labelled reports whether slice i is large enough to label.
func (d Distribution) Labelled(i int) bool {
	return d.Percent(i) >= labelThreshold
}
