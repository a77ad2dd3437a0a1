package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/wesm/insightview/internal/config"
	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/filter"
)

// pruneDimensions are the fields prune can select on.
var pruneDimensions = append(
	append([]filter.Dimension{}, filter.Dimensions...),
	filter.Source, filter.City,
)

// PruneConfig holds parsed CLI options for the prune command.
type PruneConfig struct {
	Filter filter.Params
	DryRun bool
	Yes    bool
}

func parsePruneFlags(args []string) (PruneConfig, error) {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	ff := registerFilterFlags(fs, pruneDimensions)
	dryRun := fs.Bool(
		"dry-run", false,
		"Show what would be pruned without deleting",
	)
	yes := fs.Bool(
		"yes", false,
		"Skip confirmation prompt",
	)

	if err := fs.Parse(args); err != nil {
		return PruneConfig{}, err
	}
	if fs.NArg() > 0 {
		return PruneConfig{}, fmt.Errorf(
			"unexpected arguments: %s", strings.Join(fs.Args(), " "),
		)
	}

	cfg := PruneConfig{
		Filter: ff.params(),
		DryRun: *dryRun,
		Yes:    *yes,
	}
	if len(cfg.Filter) == 0 {
		names := make([]string, len(pruneDimensions))
		for i, d := range pruneDimensions {
			names[i] = "--" + string(d)
		}
		return PruneConfig{}, fmt.Errorf(
			"at least one filter is required\nuse %s",
			strings.Join(names, ", "),
		)
	}
	return cfg, nil
}

// Pruner executes the prune workflow against a database.
type Pruner struct {
	DB  *db.DB
	Out io.Writer
	In  io.Reader
}

// Prune finds matching insights and deletes them.
func (p *Pruner) Prune(ctx context.Context, cfg PruneConfig) error {
	if len(cfg.Filter) == 0 {
		return fmt.Errorf(
			"at least one filter is required " +
				"(refusing to prune all insights)",
		)
	}

	candidates, err := p.DB.FindPruneCandidates(ctx, cfg.Filter)
	if err != nil {
		return fmt.Errorf("finding candidates: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(p.Out,
			"No insights match the given filters.")
		return nil
	}

	writeSummary(p.Out, candidates)

	if cfg.DryRun {
		fmt.Fprintln(p.Out, "\nDry run: no changes made.")
		return nil
	}

	if !cfg.Yes {
		msg := fmt.Sprintf(
			"\nDelete %d insights?", len(candidates),
		)
		if !confirm(p.In, p.Out, msg) {
			fmt.Fprintln(p.Out, "Aborted.")
			return nil
		}
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.RowID
	}

	deleted, err := p.DB.DeleteInsights(ctx, ids)
	if err != nil {
		return fmt.Errorf("deleting insights: %w", err)
	}
	fmt.Fprintf(p.Out, "\nDeleted %d insights\n", deleted)
	return nil
}

func confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(r)
	scanner.Scan()
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

func writeSummary(w io.Writer, candidates []db.PruneCandidate) {
	byTopic := map[string]int{}
	var topics []string
	for _, c := range candidates {
		topic := c.Topic
		if topic == "" {
			topic = "(no topic)"
		}
		if byTopic[topic] == 0 {
			topics = append(topics, topic)
		}
		byTopic[topic]++
	}
	sort.Strings(topics)

	fmt.Fprintf(w, "Found %d insights\n", len(candidates))
	fmt.Fprintln(w, "\nBy topic:")
	for _, topic := range topics {
		fmt.Fprintf(w, "  %-40s %d\n", topic, byTopic[topic])
	}
}

func runPrune(args []string) {
	cfg, err := parsePruneFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	appCfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(appCfg.DBPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	pruner := &Pruner{
		DB:  database,
		Out: os.Stdout,
		In:  os.Stdin,
	}
	if err := pruner.Prune(context.Background(), cfg); err != nil {
		log.Fatalf("prune: %v", err)
	}
}
