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
	"github.com/wesm/insightview/internal/update"
)

const updateTimeout = 15 * time.Second

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	check := fs.Bool("check", false,
		"Only report the result; do not show release notes")
	force := fs.Bool("force", false,
		"Force check (ignore cache)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(),
			"Usage: insightview update [flags]")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	dataDir, err := config.ResolveDataDir()
	if err != nil {
		log.Fatalf("resolving data dir: %v", err)
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), updateTimeout,
	)
	defer cancel()
	info, err := update.CheckForUpdate(ctx, version, *force, dataDir)
	if err != nil {
		log.Fatalf("checking for updates: %v", err)
	}
	writeUpdateInfo(os.Stdout, info, !*check)
}

// writeUpdateInfo reports the result of an update check. Release
// notes are included when notes is set and the check fetched them.
func writeUpdateInfo(w io.Writer, info *update.UpdateInfo, notes bool) {
	if info == nil {
		fmt.Fprintf(w, "insightview %s is up to date.\n", version)
		return
	}
	if info.IsDevBuild {
		fmt.Fprintf(w,
			"Running dev build (%s). Latest release: %s\n",
			info.CurrentVersion, info.LatestVersion,
		)
	} else {
		fmt.Fprintf(w,
			"Update available: %s -> %s\n",
			info.CurrentVersion, info.LatestVersion,
		)
	}
	if info.ReleaseURL != "" {
		fmt.Fprintf(w, "Download: %s\n", info.ReleaseURL)
	}
	if notes && info.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", info.Notes)
	}
}
