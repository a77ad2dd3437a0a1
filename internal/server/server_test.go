package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/insightview/internal/aggregate"
	"github.com/wesm/insightview/internal/chart"
	"github.com/wesm/insightview/internal/client"
	"github.com/wesm/insightview/internal/config"
	"github.com/wesm/insightview/internal/dashboard"
	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
	"github.com/wesm/insightview/internal/server"
	"github.com/wesm/insightview/internal/sync"
	"github.com/wesm/insightview/internal/testjson"
)

// --- Test helpers ---

// testEnv sets up a server with a temporary database and a
// dataset file loaded from testjson.Sample.
type testEnv struct {
	srv      *server.Server
	handler  http.Handler
	db       *db.DB
	engine   *sync.Engine
	dataFile string
}

// setupOption customizes the config used by setup.
type setupOption func(*config.Config)

func setup(t *testing.T, opts ...setupOption) *testEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.Config{
		Host:         "127.0.0.1",
		Port:         0,
		DataDir:      dir,
		DBPath:       dbPath,
		DataFile:     filepath.Join(dir, "jsondata.json"),
		WriteTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	engine := sync.NewEngine(database, cfg.DataFile)
	srv := server.New(cfg, database, engine, server.WithVersion(
		server.VersionInfo{Version: "v1.2.3", Commit: "abc123"},
	))

	te := &testEnv{
		srv:      srv,
		handler:  srv.Handler(),
		db:       database,
		engine:   engine,
		dataFile: cfg.DataFile,
	}
	te.writeDataset(t, testjson.Sample())
	return te
}

// writeDataset replaces the dataset file and loads it.
func (te *testEnv) writeDataset(
	t *testing.T, b *testjson.DatasetBuilder,
) {
	t.Helper()
	require.NoError(t, b.WriteFile(te.dataFile))
	_, err := te.engine.Load(context.Background(), nil)
	require.NoError(t, err)
}

func (te *testEnv) get(
	t *testing.T, path string,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	te.handler.ServeHTTP(w, req)
	return w
}

func (te *testEnv) post(
	t *testing.T, path string, header http.Header,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	te.handler.ServeHTTP(w, req)
	return w
}

// listenAndServe starts the server on a real port and returns the
// base URL. The server is shut down when the test finishes.
func (te *testEnv) listenAndServe(t *testing.T) string {
	t.Helper()
	port := server.FindAvailablePort("127.0.0.1", 40000)
	te.srv.SetPort(port)

	var serveErr error
	done := make(chan struct{})
	go func() {
		serveErr = te.srv.ListenAndServe()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ready := false
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			ready = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ready {
		t.Fatalf("server not ready after 2s")
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancel()
		if err := te.srv.Shutdown(ctx); err != nil {
			t.Errorf("server shutdown error: %v", err)
		}
		select {
		case <-done:
			if serveErr != nil && serveErr != http.ErrServerClosed {
				t.Errorf("server exited with error: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Error("timed out waiting for server goroutine")
		}
	})

	return "http://" + addr
}

func assertStatus(
	t *testing.T, w *httptest.ResponseRecorder, code int,
) {
	t.Helper()
	if w.Code != code {
		t.Fatalf(
			"expected status %d, got %d: %s",
			code, w.Code, w.Body.String(),
		)
	}
}

func decode[T any](
	t *testing.T, w *httptest.ResponseRecorder,
) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response: %v (body=%q)", err, w.Body.String())
	}
	return v
}

// --- Records and options ---

func TestListInsights(t *testing.T) {
	te := setup(t)

	tests := []struct {
		name   string
		query  string
		topics []string
	}{
		{"all", "", []string{"oil", "gas", "oil", "market"}},
		{"topic", "?topic=oil", []string{"oil", "oil"}},
		{"two filters", "?topic=oil&country=India", []string{"oil"}},
		{"numeric year", "?end_year=2030", []string{"oil", "market"}},
		{"string year", "?end_year=2025", []string{"gas"}},
		{"unknown value", "?sector=Mining", []string{}},
		{"invalid year passes through", "?end_year=soon", []string{}},
		{"unknown key ignored", "?colour=red", []string{"oil", "gas", "oil", "market"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := te.get(t, "/api/v1/insights"+tt.query)
			assertStatus(t, w, http.StatusOK)

			recs := decode[[]insight.Record](t, w)
			topics := []string{}
			for _, r := range recs {
				v, _ := r.TopicValue()
				topics = append(topics, v)
			}
			assert.Equal(t, tt.topics, topics)
		})
	}
}

func TestListInsights_EmptyIsArray(t *testing.T) {
	te := setup(t)
	w := te.get(t, "/api/v1/insights?topic=none")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestLegacyAliases(t *testing.T) {
	te := setup(t)
	pairs := [][2]string{
		{"/api/data?topic=gas", "/api/v1/insights?topic=gas"},
		{"/api/filters", "/api/v1/filters"},
	}
	for _, p := range pairs {
		legacy := te.get(t, p[0])
		current := te.get(t, p[1])
		assertStatus(t, legacy, http.StatusOK)
		assert.JSONEq(t, current.Body.String(), legacy.Body.String(), p[0])
	}
}

func TestFilterOptions(t *testing.T) {
	te := setup(t)
	w := te.get(t, "/api/v1/filters")
	assertStatus(t, w, http.StatusOK)

	opts := decode[filter.Options](t, w)
	assert.Equal(t, []string{"2025", "2030"}, opts.Values(filter.EndYear))
	assert.Equal(t, []string{"gas", "market", "oil"}, opts.Values(filter.Topic))
	assert.Equal(t,
		[]string{"Energy", "Manufacturing", "Retail"},
		opts.Values(filter.Sector))
	assert.Equal(t,
		[]string{"Economic", "Industries", "Political"},
		opts.Values(filter.Pestle))
}

// --- Aggregates ---

func TestAnalytics_EveryRouteServes(t *testing.T) {
	te := setup(t)
	for _, name := range []string{
		"sectors", "sectors-first-seen", "topics",
		"topics-first-seen", "regions", "bubbles", "scatter",
		"yearly-intensity", "country-intensity", "recent",
		"dashboard",
	} {
		t.Run(name, func(t *testing.T) {
			w := te.get(t, "/api/v1/analytics/"+name+"?sector=Energy")
			assertStatus(t, w, http.StatusOK)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestAnalytics_Sectors(t *testing.T) {
	te := setup(t)

	w := te.get(t, "/api/v1/analytics/sectors")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, []aggregate.Count{
		{Key: "Energy", Count: 2},
		{Key: "Manufacturing", Count: 1},
		{Key: "Retail", Count: 1},
	}, decode[[]aggregate.Count](t, w))

	w = te.get(t, "/api/v1/analytics/sectors?country=India")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, []aggregate.Count{
		{Key: "Energy", Count: 1},
		{Key: "Manufacturing", Count: 1},
	}, decode[[]aggregate.Count](t, w))
}

func TestAnalytics_Regions(t *testing.T) {
	te := setup(t)
	w := te.get(t, "/api/v1/analytics/regions")
	assertStatus(t, w, http.StatusOK)

	d := decode[aggregate.Distribution](t, w)
	assert.Equal(t, 4, d.Total)
	assert.Equal(t, map[string]int{
		"Northern America": 1, "Asia": 2, "Europe": 1,
	}, d.Map())
}

func TestAnalytics_Dashboard(t *testing.T) {
	te := setup(t)
	w := te.get(t, "/api/v1/analytics/dashboard?end_year=2030")
	assertStatus(t, w, http.StatusOK)

	d := decode[aggregate.Dashboard](t, w)
	assert.Equal(t, 2, d.Records)
	assert.Len(t, d.Bubbles, 2)
	assert.Len(t, d.Recent, 2)
	require.Len(t, d.YearlyIntensity, 1)
	assert.Equal(t, 2, d.YearlyIntensity[0].Count)
}

// --- Charts ---

func TestCharts(t *testing.T) {
	te := setup(t)

	w := te.get(t, "/api/v1/charts")
	assertStatus(t, w, http.StatusOK)
	list := decode[map[string][]string](t, w)
	assert.Equal(t, chart.Names, list["charts"])

	for _, name := range chart.Names {
		w := te.get(t, "/api/v1/charts/"+name)
		assertStatus(t, w, http.StatusOK)
		cfg := decode[chart.Config](t, w)
		assert.NotEmpty(t, cfg.Series, name)
	}

	w = te.get(t, "/api/v1/charts/pie-in-the-sky")
	assertStatus(t, w, http.StatusNotFound)
	assert.Contains(t, w.Body.String(), "unknown chart")
}

// --- Stats, version, reload ---

func TestStats(t *testing.T) {
	te := setup(t)
	w := te.get(t, "/api/v1/stats")
	assertStatus(t, w, http.StatusOK)

	stats := decode[db.Stats](t, w)
	assert.Equal(t, 4, stats.InsightCount)
	assert.Equal(t, 3, stats.TopicCount)
	assert.Equal(t, 3, stats.CountryCount)
	require.NotNil(t, stats.LastLoad)
	assert.Equal(t, 1, stats.LastLoad.Skipped)
	assert.Equal(t, "jsondata.json", stats.LastLoad.Source)
}

func TestVersion(t *testing.T) {
	te := setup(t)
	w := te.get(t, "/api/v1/version")
	assertStatus(t, w, http.StatusOK)
	v := decode[server.VersionInfo](t, w)
	assert.Equal(t, "v1.2.3", v.Version)
	assert.Equal(t, "abc123", v.Commit)
}

func TestReload_JSON(t *testing.T) {
	te := setup(t)
	require.NoError(t, testjson.NewDatasetBuilder().
		Add(testjson.Insight("coal", "Energy", "Asia", "China", 2040)).
		WriteFile(te.dataFile))

	w := te.post(t, "/api/v1/reload", nil)
	assertStatus(t, w, http.StatusOK)
	stats := decode[sync.LoadStats](t, w)
	assert.Equal(t, 1, stats.Records)
	assert.False(t, stats.Unchanged)

	w = te.get(t, "/api/v1/insights")
	assert.Len(t, decode[[]insight.Record](t, w), 1)

	w = te.get(t, "/api/v1/reload/status")
	assertStatus(t, w, http.StatusOK)
	status := decode[map[string]any](t, w)
	assert.Equal(t, te.dataFile, status["path"])
	assert.Equal(t, "", status["last_error"])
}

func TestReload_Stream(t *testing.T) {
	te := setup(t)
	w := te.post(t, "/api/v1/reload", http.Header{
		"Accept": {"text/event-stream"},
	})
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: progress\n")
	assert.Contains(t, body, "event: done\n")
	assert.NotContains(t, body, "event: error\n")
}

func TestReload_BadDatasetKeepsCollection(t *testing.T) {
	te := setup(t)
	require.NoError(t, os.WriteFile(
		te.dataFile, []byte(`{"not": "an array"}`), 0o644,
	))

	w := te.post(t, "/api/v1/reload", nil)
	assertStatus(t, w, http.StatusUnprocessableEntity)

	w = te.get(t, "/api/v1/insights")
	assert.Len(t, decode[[]insight.Record](t, w), 4)

	w = te.get(t, "/api/v1/reload/status")
	status := decode[map[string]any](t, w)
	assert.NotEmpty(t, status["last_error"])
}

func TestReload_StreamReportsError(t *testing.T) {
	te := setup(t)
	require.NoError(t, os.WriteFile(te.dataFile, []byte(`"nope"`), 0o644))

	w := te.post(t, "/api/v1/reload", http.Header{
		"Accept": {"text/event-stream"},
	})
	assertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "event: error\n")
}

func TestReload_NoEngine(t *testing.T) {
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	srv := server.New(config.Config{WriteTimeout: time.Second}, database, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assertStatus(t, w, http.StatusServiceUnavailable)
}

// --- Middleware ---

func TestCORSPreflight(t *testing.T) {
	te := setup(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/insights", nil)
	w := httptest.NewRecorder()
	te.handler.ServeHTTP(w, req)

	assertStatus(t, w, http.StatusNoContent)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	te := setup(t)
	te.get(t, "/api/v1/stats")

	w := te.get(t, "/metrics")
	assertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "insightview_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="GET /api/v1/stats"`)
}

// --- End to end ---

// TestDashboardOverHTTP drives the dashboard pipeline against a
// live server through the HTTP client.
func TestDashboardOverHTTP(t *testing.T) {
	te := setup(t)
	base := te.listenAndServe(t)

	c := client.New(base)
	d := dashboard.New(c, c)
	ctx := context.Background()
	require.NoError(t, d.Init(ctx))

	v := d.View()
	assert.Equal(t, 4, v.Aggregates.Records)
	assert.Equal(t,
		[]string{"gas", "market", "oil"},
		v.Options.Values(filter.Topic))

	require.NoError(t, d.SetFilter(ctx, filter.Country, "India"))
	v = d.View()
	assert.Equal(t, 2, v.Aggregates.Records)
	assert.Equal(t, map[string]string{"country": "India"}, v.Filters)

	require.NoError(t, d.SetFilter(ctx, filter.EndYear, "2025"))
	assert.Equal(t, 1, d.View().Aggregates.Records)

	require.NoError(t, d.Reset(ctx))
	assert.Equal(t, 4, d.View().Aggregates.Records)
}
