package server

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/wesm/insightview/internal/insight"
	syncpkg "github.com/wesm/insightview/internal/sync"
)

// handleReload re-reads the dataset file and replaces the stored
// collection. Clients that accept text/event-stream get progress
// events followed by "done" (or "error"); others get the final
// stats as JSON.
func (s *Server) handleReload(
	w http.ResponseWriter, r *http.Request,
) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable,
			"no dataset file configured")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		stream, err := NewSSEStream(w)
		if err == nil {
			stats, err := s.engine.Reload(r.Context(),
				func(p syncpkg.Progress) {
					stream.SendJSON("progress", p)
				})
			if err != nil {
				log.Printf("reload error: %v", err)
				stream.SendJSON("error", jsonError{Error: err.Error()})
				return
			}
			stream.SendJSON("done", stats)
			return
		}
	}

	stats, err := s.engine.Reload(r.Context(), nil)
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		log.Printf("reload error: %v", err)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound,
				"dataset file not found: "+s.engine.Path())
		case errors.Is(err, insight.ErrNotArray):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError,
				"reload failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReloadStatus(
	w http.ResponseWriter, _ *http.Request,
) {
	if s.engine == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"path": "",
		})
		return
	}

	var lastLoadStr, lastErr string
	if t := s.engine.LastLoad(); !t.IsZero() {
		lastLoadStr = t.Format(time.RFC3339)
	}
	if err := s.engine.LastError(); err != nil {
		lastErr = err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":       s.engine.Path(),
		"last_load":  lastLoadStr,
		"stats":      s.engine.LastLoadStats(),
		"last_error": lastErr,
	})
}

func (s *Server) handleGetStats(
	w http.ResponseWriter, r *http.Request,
) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		log.Printf("stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
