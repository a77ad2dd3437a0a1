package aggregate

import "github.com/wesm/insightview/internal/insight"

// BubblePoint is one bubble: x = likelihood, y = relevance,
// size = intensity, plus tooltip metadata.
type BubblePoint struct {
	Likelihood float64 `json:"likelihood"`
	Relevance  float64 `json:"relevance"`
	Intensity  float64 `json:"intensity"`
	Title      string  `json:"title,omitempty"`
	Sector     string  `json:"sector,omitempty"`
	Country    string  `json:"country,omitempty"`
}

// ScatterPoint is one scatter mark: x = likelihood,
// y = intensity, plus tooltip metadata.
type ScatterPoint struct {
	Likelihood float64 `json:"likelihood"`
	Intensity  float64 `json:"intensity"`
	Title      string  `json:"title,omitempty"`
	Sector     string  `json:"sector,omitempty"`
	Country    string  `json:"country,omitempty"`
}

// BubblePoints returns the first fifty records, in order, that
// have likelihood, relevance and intensity.
func BubblePoints(recs []insight.Record) []BubblePoint {
	out := make([]BubblePoint, 0, min(len(recs), BubbleCap))
	for _, r := range recs {
		if len(out) == BubbleCap {
			break
		}
		x, ok := r.LikelihoodValue()
		if !ok {
			continue
		}
		y, ok := r.RelevanceValue()
		if !ok {
			continue
		}
		size, ok := r.IntensityValue()
		if !ok {
			continue
		}
		sector, _ := r.SectorValue()
		country, _ := r.CountryValue()
		out = append(out, BubblePoint{
			Likelihood: x,
			Relevance:  y,
			Intensity:  size,
			Title:      r.TitleText(),
			Sector:     sector,
			Country:    country,
		})
	}
	return out
}

// ScatterPoints returns every record, in order, that has
// likelihood and intensity.
func ScatterPoints(recs []insight.Record) []ScatterPoint {
	out := make([]ScatterPoint, 0, len(recs))
	for _, r := range recs {
		x, ok := r.LikelihoodValue()
		if !ok {
			continue
		}
		y, ok := r.IntensityValue()
		if !ok {
			continue
		}
		sector, _ := r.SectorValue()
		country, _ := r.CountryValue()
		out = append(out, ScatterPoint{
			Likelihood: x,
			Intensity:  y,
			Title:      r.TitleText(),
			Sector:     sector,
			Country:    country,
		})
	}
	return out
}
