package aggregate

import (
	"sort"

	"github.com/wesm/insightview/internal/insight"
)

// CountryAverage is the intensity summary of one country.
type CountryAverage struct {
	Country string  `json:"country"`
	Sum     float64 `json:"total"`
	Count   int     `json:"count"`
	Avg     float64 `json:"avg"`
}

// CountryIntensity averages intensity per country over records
// that have both fields, ranks by average descending (first-seen
// order among ties), and keeps the top ten.
func CountryIntensity(recs []insight.Record) []CountryAverage {
	index := make(map[string]int)
	out := make([]CountryAverage, 0)
	for _, r := range recs {
		country, ok := r.CountryValue()
		if !ok {
			continue
		}
		v, ok := r.IntensityValue()
		if !ok {
			continue
		}
		i, seen := index[country]
		if !seen {
			i = len(out)
			index[country] = i
			out = append(out, CountryAverage{Country: country})
		}
		out[i].Sum += v
		out[i].Count++
	}

	// Count is at least one for every entry.
	for i := range out {
		out[i].Avg = out[i].Sum / float64(out[i].Count)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Avg > out[j].Avg
	})
	return firstN(out, CountryCap)
}
