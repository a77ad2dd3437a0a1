package server

import (
	"log"
	"net/http"

	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

// filteredInsights loads the records matching the request's
// filter parameters. On failure it writes the error response
// (unless the context is done) and returns ok=false.
func (s *Server) filteredInsights(
	w http.ResponseWriter, r *http.Request,
) ([]insight.Record, bool) {
	p := filter.ParseParams(r.URL.Query())
	recs, err := s.db.ListInsights(r.Context(), p)
	if err != nil {
		if handleContextError(w, err) {
			return nil, false
		}
		log.Printf("list insights error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return recs, true
}

// handleListInsights returns the matching records as a bare JSON
// array, the shape the dashboard's record source decodes.
func (s *Server) handleListInsights(
	w http.ResponseWriter, r *http.Request,
) {
	recs, ok := s.filteredInsights(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleFilterOptions(
	w http.ResponseWriter, r *http.Request,
) {
	opts, err := s.db.FilterOptions(r.Context())
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		log.Printf("filter options error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, opts)
}
