package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/insightview/internal/config"
	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/server"
	"github.com/wesm/insightview/internal/sync"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	logFileName     = "debug.log"
	maxLogSize      = 10 << 20
	shutdownTimeout = 5 * time.Second
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "load":
			runLoad(os.Args[2:])
			return
		case "summary":
			runSummary(os.Args[2:])
			return
		case "prune":
			runPrune(os.Args[2:])
			return
		case "update":
			runUpdate(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("insightview %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`insightview %s - insights dataset dashboard

Loads a JSON array of insight records into SQLite and serves
filtered records, filter options, and every dashboard aggregate
over a local JSON API.

Usage:
  insightview [flags]          Start the server (default command)
  insightview serve [flags]    Start the server (explicit)
  insightview load [flags]     Replace stored insights with a dataset file
  insightview summary [flags]  Print the dashboard aggregates as tables
  insightview prune [flags]    Delete stored insights matching filters
  insightview update [flags]   Check for a newer release
  insightview version          Show version information
  insightview help             Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8080)
  -data-file string   Dataset file to load and watch
  -no-watch           Don't reload when the dataset file changes

Load flags:
  -file string        Dataset file (default: configured data file)
  -save               Remember -file as the default dataset file

Summary flags:
  -server string      Server URL (default "http://127.0.0.1:8080")
  -file string        Summarize a dataset file without a server
  -<dimension> value  Filter: end_year, topic, sector, region,
                      pestle, country

Prune flags:
  -<dimension> value  Filter (same dimensions, plus source, city)
  -dry-run            Show what would be pruned without deleting
  -yes                Skip confirmation prompt

Update flags:
  -check              Only report; never prompt
  -force              Force check (ignore cache)

Environment variables:
  INSIGHTVIEW_DATA_DIR     Data directory (database, config, logs)
  INSIGHTVIEW_DATA_FILE    Dataset file
  INSIGHTVIEW_SERVER_URL   Server used by summary

Data is stored in ~/.insightview/ by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)
	setupLogFile(cfg.DataDir)
	database := mustOpenDB(cfg)
	defer database.Close()

	engine := sync.NewEngine(database, cfg.DataFile)
	runInitialLoad(engine)

	if !cfg.NoWatch {
		stopWatcher := startFileWatcher(cfg, engine)
		defer stopWatcher()
	}

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, database, engine,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	fmt.Printf("insightview %s listening at http://%s:%d\n",
		version, cfg.Host, cfg.Port)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()
	if err := serve(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// serve runs srv until ctx is done, then shuts it down.
func serve(ctx context.Context, srv *server.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("insightview", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: insightview [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func mustOpenDB(cfg config.Config) *db.DB {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	return database
}

// setupLogFile tees the standard logger into debug.log in
// dataDir. A log file that cannot be opened only costs the
// copy; logging to stderr continues.
func setupLogFile(dataDir string) {
	path := filepath.Join(dataDir, logFileName)
	truncateLogFile(path, maxLogSize)
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
	)
	if err != nil {
		log.Printf("warning: cannot open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

// truncateLogFile empties path when it has grown past limit.
// Symlinks are left alone.
func truncateLogFile(path string, limit int64) {
	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
		return
	}
	if info.Size() <= limit {
		return
	}
	if err := os.Truncate(path, 0); err != nil {
		log.Printf("warning: truncating log file: %v", err)
	}
}

func runInitialLoad(engine *sync.Engine) {
	if _, err := os.Stat(engine.Path()); err != nil {
		fmt.Printf("No dataset at %s; serving stored insights\n",
			engine.Path())
		return
	}
	fmt.Println("Loading dataset...")
	stats, err := engine.Load(context.Background(), printLoadProgress)
	if err != nil {
		fmt.Println()
		log.Printf("initial load: %v", err)
		return
	}
	fmt.Printf(
		"\nLoad complete: %d records (%d skipped)\n",
		stats.Records, stats.Skipped,
	)
}

func printLoadProgress(p sync.Progress) {
	switch p.Phase {
	case sync.PhaseDecoding:
		fmt.Printf("\r  decoding %d bytes", p.Bytes)
	case sync.PhaseStoring:
		fmt.Printf("\r  storing %d records", p.Records)
	}
}

func startFileWatcher(
	cfg config.Config, engine *sync.Engine,
) func() {
	watcher, err := sync.NewWatcher(cfg.WatchDebounce, engine.LoadPaths)
	if err != nil {
		log.Printf("warning: file watcher unavailable: %v", err)
		return func() {}
	}
	if err := watcher.Watch(cfg.DataFile); err != nil {
		log.Printf("warning: cannot watch %s: %v", cfg.DataFile, err)
	}
	watcher.Start()
	return watcher.Stop
}
