package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/wesm/insightview/internal/config"
	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/sync"
)

func runLoad(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	file := fs.String("file", "",
		"Dataset file (default: configured data file)")
	save := fs.Bool("save", false,
		"Remember -file as the default dataset file")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(),
			"Usage: insightview load [flags]")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	path := cfg.DataFile
	if *file != "" {
		path = *file
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	if err := loadDataset(
		context.Background(), database, path, os.Stdout,
	); err != nil {
		log.Fatalf("load: %v", err)
	}
	if *save && *file != "" {
		if err := cfg.SaveDataFile(*file); err != nil {
			log.Fatalf("saving data file: %v", err)
		}
		fmt.Printf("Default dataset file set to %s\n", cfg.DataFile)
	}
}

// loadDataset replaces the stored insights with the records in
// path and reports the result to out.
func loadDataset(
	ctx context.Context, database *db.DB, path string, out io.Writer,
) error {
	engine := sync.NewEngine(database, path)
	stats, err := engine.Reload(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out,
		"Loaded %d insights from %s (%d skipped, %.1f%%) in %s\n",
		stats.Records, path, stats.Skipped,
		stats.SkipRate(), stats.Duration.Round(time.Millisecond),
	)
	return nil
}
