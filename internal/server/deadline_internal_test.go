package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestHandlers_Internal_DeadlineExceeded checks that handlers
// stop without writing when the request context has expired,
// leaving the response to the timeout middleware.
func TestHandlers_Internal_DeadlineExceeded(t *testing.T) {
	t.Parallel()
	s := testServer(t, 30*time.Second)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"ListInsights", s.handleListInsights},
		{"FilterOptions", s.handleFilterOptions},
		{"Dashboard", s.handleDashboard},
		{"Sectors", s.aggregateHandler(aggregates["sectors"])},
		{"GetChart", s.handleGetChart},
		{"GetStats", s.handleGetStats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := expiredCtx(t)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, "/?topic=oil", nil)
			req.SetPathValue("name", "sector-bar")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			tt.handler(w, req)

			if w.Body.Len() != 0 {
				t.Errorf("handler wrote %q, want nothing", w.Body.String())
			}
			if w.Header().Get("Content-Type") != "" {
				t.Errorf("handler set Content-Type on expired context")
			}
		})
	}
}

func TestGetChart_UnknownNameSkipsQuery(t *testing.T) {
	t.Parallel()
	s := testServer(t, 30*time.Second)

	ctx, cancel := expiredCtx(t)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	req.SetPathValue("name", "nope")

	w := httptest.NewRecorder()
	s.handleGetChart(w, req)
	assertRecorderStatus(t, w, http.StatusNotFound)
}
