package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/wesm/insightview/internal/config"
	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/metrics"
	"github.com/wesm/insightview/internal/sync"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server that serves the insights JSON API.
type Server struct {
	mu      gosync.RWMutex
	cfg     config.Config
	db      *db.DB
	engine  *sync.Engine
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server. engine may be nil, in which case
// reload requests fail with 503.
func New(
	cfg config.Config, database *db.DB, engine *sync.Engine,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:    cfg,
		db:     database,
		engine: engine,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

func (s *Server) routes() {
	s.handle("GET /api/v1/insights", s.handleListInsights)
	s.handle("GET /api/v1/filters", s.handleFilterOptions)
	// Legacy paths the dashboard front end requests.
	s.handle("GET /api/data", s.handleListInsights)
	s.handle("GET /api/filters", s.handleFilterOptions)

	for name, fn := range aggregates {
		s.handle(
			"GET /api/v1/analytics/"+name, s.aggregateHandler(fn),
		)
	}
	s.handle("GET /api/v1/analytics/dashboard", s.handleDashboard)
	s.handle("GET /api/v1/charts", s.handleListCharts)
	s.handle("GET /api/v1/charts/{name}", s.handleGetChart)

	s.handle("GET /api/v1/stats", s.handleGetStats)
	s.handle("GET /api/v1/version", s.handleGetVersion)
	// Reload streams progress; do not use the timeout handler,
	// which would buffer the stream.
	s.mux.Handle("POST /api/v1/reload", instrument(
		"POST /api/v1/reload", http.HandlerFunc(s.handleReload),
	))
	s.handle("GET /api/v1/reload/status", s.handleReloadStatus)

	s.mux.Handle("GET /metrics", metrics.Handler())
}

// handle registers a timeout-wrapped, instrumented handler. The
// pattern doubles as the metrics route label so label
// cardinality stays bounded.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(pattern, s.withTimeout(h)))
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

// SetPort updates the listen port (for testing).
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set(
				"Access-Control-Allow-Origin", "*",
			)
			w.Header().Set(
				"Access-Control-Allow-Methods",
				"GET, POST, OPTIONS",
			)
			w.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type",
			)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			if r.URL.RawQuery != "" {
				log.Printf("%s %s?%s", r.Method, r.URL.Path, r.URL.RawQuery)
			} else {
				log.Printf("%s %s", r.Method, r.URL.Path)
			}
		}
		next.ServeHTTP(w, r)
	})
}

