package server

import (
	"net/http"

	"github.com/wesm/insightview/internal/aggregate"
	"github.com/wesm/insightview/internal/chart"
	"github.com/wesm/insightview/internal/insight"
)

// aggregates maps each /api/v1/analytics/{name} route to the
// aggregation it serves. Every variant is kept separate, even
// where two differ only in ordering.
var aggregates = map[string]func([]insight.Record) any{
	"sectors": func(recs []insight.Record) any {
		return aggregate.SectorCounts(recs)
	},
	"sectors-first-seen": func(recs []insight.Record) any {
		return aggregate.SectorCountsFirstSeen(recs)
	},
	"topics": func(recs []insight.Record) any {
		return aggregate.TopicFrequency(recs)
	},
	"topics-first-seen": func(recs []insight.Record) any {
		return aggregate.TopicCountsFirstSeen(recs)
	},
	"regions": func(recs []insight.Record) any {
		return aggregate.RegionDistribution(recs)
	},
	"bubbles": func(recs []insight.Record) any {
		pts := aggregate.BubblePoints(recs)
		return map[string]any{
			"points": pts,
			"scale":  aggregate.RadiusScale(pts),
		}
	},
	"scatter": func(recs []insight.Record) any {
		return aggregate.ScatterPoints(recs)
	},
	"yearly-intensity": func(recs []insight.Record) any {
		return aggregate.YearlyIntensity(recs)
	},
	"country-intensity": func(recs []insight.Record) any {
		return aggregate.CountryIntensity(recs)
	},
	"recent": func(recs []insight.Record) any {
		return aggregate.RecentRecords(recs, aggregate.RecentCap)
	},
}

// aggregateHandler serves one aggregation over the records
// matching the request's filter parameters.
func (s *Server) aggregateHandler(
	fn func([]insight.Record) any,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, ok := s.filteredInsights(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, fn(recs))
	}
}

func (s *Server) handleDashboard(
	w http.ResponseWriter, r *http.Request,
) {
	recs, ok := s.filteredInsights(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Compute(recs))
}

func (s *Server) handleListCharts(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, map[string]any{
		"charts": chart.Names,
	})
}

func (s *Server) handleGetChart(
	w http.ResponseWriter, r *http.Request,
) {
	name := r.PathValue("name")
	if !knownChart(name) {
		writeError(w, http.StatusNotFound, "unknown chart: "+name)
		return
	}
	recs, ok := s.filteredInsights(w, r)
	if !ok {
		return
	}
	cfg, _ := chart.Build(name, aggregate.Compute(recs))
	writeJSON(w, http.StatusOK, cfg)
}

func knownChart(name string) bool {
	for _, n := range chart.Names {
		if n == name {
			return true
		}
	}
	return false
}
