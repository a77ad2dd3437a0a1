// Package chart adapts aggregates into a library-neutral series
// format that a frontend charting library can draw directly.
package chart

import (
	"fmt"
	"math"

	"github.com/wesm/insightview/internal/aggregate"
)

// Config describes one chart.
type Config struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	XAxis  string   `json:"x_axis,omitempty"`
	YAxis  string   `json:"y_axis,omitempty"`
	Series []Series `json:"series"`
}

// Series is one named run of points.
type Series struct {
	Name   string  `json:"name"`
	Color  string  `json:"color,omitempty"`
	Points []Point `json:"points"`
}

// Point is a single mark. Category charts use Label/Value;
// coordinate charts use X/Y and, for bubbles, R.
type Point struct {
	Label   string            `json:"label,omitempty"`
	Value   float64           `json:"value"`
	X       float64           `json:"x,omitempty"`
	Y       float64           `json:"y,omitempty"`
	R       float64           `json:"r,omitempty"`
	Percent float64           `json:"percent"`
	Tooltip map[string]string `json:"tooltip,omitempty"`
}

// Names of the charts the dashboard draws.
const (
	SectorBar        = "sector-bar"
	RegionPie        = "region-pie"
	BubbleChart      = "bubble"
	IntensityLine    = "intensity-line"
	CountryIntensity = "country-intensity"
	TopicFrequency   = "topic-frequency"
	ScatterChart     = "scatter"
)

// Names lists every chart in dashboard order.
var Names = []string{
	SectorBar, RegionPie, BubbleChart, IntensityLine,
	CountryIntensity, TopicFrequency, ScatterChart,
}

// Build returns the named chart for d.
func Build(name string, d aggregate.Dashboard) (Config, bool) {
	switch name {
	case SectorBar:
		return Sectors(d.SectorCounts, d.Records), true
	case RegionPie:
		return Regions(d.Regions), true
	case BubbleChart:
		return Bubbles(d.Bubbles, d.BubbleScale), true
	case IntensityLine:
		return Yearly(d.YearlyIntensity), true
	case CountryIntensity:
		return Countries(d.CountryIntensity), true
	case TopicFrequency:
		return Topics(d.TopicFrequency, d.Records), true
	case ScatterChart:
		return Scatter(d.Scatter), true
	}
	return Config{}, false
}

// Sectors draws the sector count bar chart. The tooltip share
// is against all filtered records, as the dashboard shows it.
func Sectors(counts []aggregate.Count, records int) Config {
	pts := make([]Point, 0, len(counts))
	for _, c := range counts {
		p := Point{Label: c.Key, Value: float64(c.Count)}
		if records > 0 {
			p.Percent = round1(float64(c.Count) / float64(records) * 100)
		}
		pts = append(pts, p)
	}
	return Config{
		Type:   "bar",
		Title:  "Count by Sector",
		XAxis:  "Sector",
		YAxis:  "Count",
		Series: []Series{{Name: "Count", Color: "#4BC0C0", Points: pts}},
	}
}

// Regions draws the region pie. Slices under the label threshold
// get no label text.
func Regions(d aggregate.Distribution) Config {
	pts := make([]Point, 0, len(d.Slices))
	for i, s := range d.Slices {
		p := Point{
			Value:   float64(s.Count),
			Percent: round1(d.Percent(i)),
			Tooltip: map[string]string{"region": s.Key},
		}
		if d.Labelled(i) {
			p.Label = s.Key
		}
		pts = append(pts, p)
	}
	return Config{
		Type:   "pie",
		Title:  "Distribution by Region",
		Series: []Series{{Name: "Regions", Points: pts}},
	}
}

// Bubbles draws likelihood against relevance with radius from
// the square-root intensity scale.
func Bubbles(pts []aggregate.BubblePoint, scale aggregate.SqrtScale) Config {
	out := make([]Point, 0, len(pts))
	for _, b := range pts {
		out = append(out, Point{
			X: b.Likelihood,
			Y: b.Relevance,
			R: scale.Radius(b.Intensity),
			Tooltip: map[string]string{
				"title":     shortTitle(b.Title),
				"intensity": formatFloat(b.Intensity),
				"sector":    orUnknown(b.Sector),
				"country":   orUnknown(b.Country),
			},
		})
	}
	return Config{
		Type:   "bubble",
		Title:  "Likelihood vs Relevance (Bubble Size = Intensity)",
		XAxis:  "Likelihood",
		YAxis:  "Relevance",
		Series: []Series{{Name: "Insights", Points: out}},
	}
}

// Yearly draws total intensity per year.
func Yearly(totals []aggregate.YearTotal) Config {
	pts := make([]Point, 0, len(totals))
	for _, y := range totals {
		pts = append(pts, Point{
			Label: y.Year.String(),
			Value: y.Sum,
			Tooltip: map[string]string{
				"average":     fmt.Sprintf("%.2f", y.Average()),
				"data_points": fmt.Sprint(y.Count),
			},
		})
	}
	return Config{
		Type:   "line",
		Title:  "Intensity Over Years",
		XAxis:  "Year",
		YAxis:  "Total Intensity",
		Series: []Series{{Name: "Intensity", Color: "#36A2EB", Points: pts}},
	}
}

// Countries draws the top countries by average intensity.
func Countries(avgs []aggregate.CountryAverage) Config {
	pts := make([]Point, 0, len(avgs))
	for _, c := range avgs {
		pts = append(pts, Point{
			Label: c.Country,
			Value: c.Avg,
			Tooltip: map[string]string{
				"total":       fmt.Sprintf("%.1f", c.Sum),
				"data_points": fmt.Sprint(c.Count),
			},
		})
	}
	return Config{
		Type:   "bar",
		Title:  "Top Countries by Avg Intensity",
		XAxis:  "Country",
		YAxis:  "Average Intensity",
		Series: []Series{{Name: "Avg Intensity", Color: "#FF9F40", Points: pts}},
	}
}

// Topics draws the most frequent topics. As with Sectors, the
// tooltip share is against all filtered records.
func Topics(counts []aggregate.Count, records int) Config {
	pts := make([]Point, 0, len(counts))
	for _, c := range counts {
		p := Point{Label: c.Key, Value: float64(c.Count)}
		if records > 0 {
			p.Percent = round1(float64(c.Count) / float64(records) * 100)
		}
		pts = append(pts, p)
	}
	return Config{
		Type:   "bar",
		Title:  "Most Frequent Topics",
		XAxis:  "Topic",
		YAxis:  "Frequency",
		Series: []Series{{Name: "Topic Frequency", Color: "#9966FF", Points: pts}},
	}
}

// Scatter draws likelihood against intensity.
func Scatter(pts []aggregate.ScatterPoint) Config {
	out := make([]Point, 0, len(pts))
	for _, s := range pts {
		out = append(out, Point{X: s.Likelihood, Y: s.Intensity})
	}
	return Config{
		Type:   "scatter",
		Title:  "Likelihood vs Intensity",
		XAxis:  "Likelihood",
		YAxis:  "Intensity",
		Series: []Series{{Name: "Insights", Color: "#4B0082", Points: out}},
	}
}

func shortTitle(s string) string {
	if s == "" {
		return "No Title"
	}
	r := []rune(s)
	if len(r) > 25 {
		return string(r[:25]) + "..."
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
