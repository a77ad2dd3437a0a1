package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/insight"
	"github.com/wesm/insightview/internal/metrics"
)

// Engine loads the dataset file into the database.
type Engine struct {
	db        *db.DB
	path      string
	loadMu    gosync.Mutex // serializes loads
	mu        gosync.RWMutex
	lastLoad  time.Time
	lastStats LoadStats
	lastErr   error
	// lastHash is the content hash of the last stored file. A
	// load whose content hashes the same is skipped unless forced.
	lastHash string
}

// NewEngine creates a load engine for the dataset at path.
func NewEngine(database *db.DB, path string) *Engine {
	return &Engine{db: database, path: path}
}

// Path returns the dataset file the engine loads.
func (e *Engine) Path() string {
	return e.path
}

// LastLoad returns the time of the last completed load.
func (e *Engine) LastLoad() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastLoad
}

// LastLoadStats returns statistics from the last successful load.
func (e *Engine) LastLoadStats() LoadStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastStats
}

// LastError returns the error from the most recent load, or nil
// if it succeeded.
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Load reads the dataset file and replaces the stored collection
// with its records. A file whose content is unchanged since the
// last load is not stored again.
func (e *Engine) Load(
	ctx context.Context, onProgress ProgressFunc,
) (LoadStats, error) {
	return e.load(ctx, false, onProgress)
}

// Reload is Load without the unchanged-content check.
func (e *Engine) Reload(
	ctx context.Context, onProgress ProgressFunc,
) (LoadStats, error) {
	return e.load(ctx, true, onProgress)
}

// LoadPaths reloads the dataset when one of the changed paths is
// the dataset file. Other paths are ignored.
func (e *Engine) LoadPaths(paths []string) {
	want := filepath.Clean(e.path)
	for _, p := range paths {
		if filepath.Clean(p) != want {
			continue
		}
		stats, err := e.Load(context.Background(), nil)
		if err != nil {
			log.Printf("reload %s: %v", e.path, err)
			return
		}
		if !stats.Unchanged {
			log.Printf(
				"reload: %d record(s) from %s",
				stats.Records, stats.Source,
			)
		}
		return
	}
}

func (e *Engine) load(
	ctx context.Context, force bool, onProgress ProgressFunc,
) (LoadStats, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	start := time.Now()
	stats, hash, err := e.loadLocked(ctx, force, onProgress)
	stats.Duration = time.Since(start)

	if !stats.Unchanged {
		metrics.RecordLoad(
			stats.Records, stats.Skipped, stats.Duration, err,
		)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
	if err != nil {
		return stats, err
	}
	e.lastLoad = time.Now()
	e.lastStats = stats
	e.lastHash = hash
	return stats, nil
}

func (e *Engine) loadLocked(
	ctx context.Context, force bool, onProgress ProgressFunc,
) (LoadStats, string, error) {
	stats := LoadStats{Source: filepath.Base(e.path)}
	progress := Progress{Phase: PhaseReading, Source: stats.Source}
	onProgress(progress)

	data, err := os.ReadFile(e.path)
	if err != nil {
		return stats, "", fmt.Errorf("reading dataset: %w", err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	e.mu.RLock()
	unchanged := !force && hash == e.lastHash
	prev := e.lastStats
	e.mu.RUnlock()
	if unchanged {
		prev.Unchanged = true
		onProgress(Progress{
			Phase: PhaseDone, Source: stats.Source,
			Bytes: len(data), Records: prev.Records,
			Skipped: prev.Skipped,
		})
		return prev, hash, nil
	}

	progress.Phase = PhaseDecoding
	progress.Bytes = len(data)
	onProgress(progress)

	ds, err := insight.Decode(data)
	if err != nil {
		return stats, "", fmt.Errorf(
			"decoding %s: %w", stats.Source, err,
		)
	}
	stats.Records = len(ds.Records)
	stats.Skipped = ds.Skipped
	if ds.Skipped > 0 {
		log.Printf(
			"load: skipped %d non-object element(s) in %s",
			ds.Skipped, stats.Source,
		)
	}

	progress.Phase = PhaseStoring
	progress.Records = stats.Records
	progress.Skipped = stats.Skipped
	onProgress(progress)

	load, err := e.db.ReplaceInsights(
		ctx, stats.Source, ds.Records, ds.Skipped,
	)
	if err != nil {
		return stats, "", fmt.Errorf("storing insights: %w", err)
	}
	stats.LoadID = load.ID

	progress.Phase = PhaseDone
	onProgress(progress)
	return stats, hash, nil
}
