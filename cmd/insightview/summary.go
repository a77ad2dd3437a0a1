package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wesm/insightview/internal/aggregate"
	"github.com/wesm/insightview/internal/client"
	"github.com/wesm/insightview/internal/config"
	"github.com/wesm/insightview/internal/dashboard"
	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

const summaryTimeout = 30 * time.Second

// source serves both filter options and records.
type source interface {
	dashboard.OptionsSource
	dashboard.RecordSource
}

func runSummary(args []string) {
	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	serverURL := fs.String("server", cfg.ServerURL,
		"Server to query")
	file := fs.String("file", "",
		"Summarize this dataset file instead of querying a server")
	ff := registerFilterFlags(fs, filter.Dimensions)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(),
			"Usage: insightview summary [flags]")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	var src source
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("reading dataset: %v", err)
		}
		ds, err := insight.Decode(data)
		if err != nil {
			log.Fatalf("decoding %s: %v", *file, err)
		}
		src = dashboard.NewStatic(ds.Records)
	} else {
		src = client.New(*serverURL)
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), summaryTimeout,
	)
	defer cancel()
	view, err := summarize(ctx, src, ff.state())
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	if err := writeDashboard(os.Stdout, view); err != nil {
		log.Fatalf("writing summary: %v", err)
	}
}

// summarize runs the dashboard pipeline over src with state
// applied one dimension at a time, as a user selecting filters
// would.
func summarize(
	ctx context.Context, src source, state filter.State,
) (dashboard.View, error) {
	d := dashboard.New(src, src)
	if err := d.Init(ctx); err != nil {
		return dashboard.View{}, err
	}
	for _, dim := range state.Active() {
		if err := d.SetFilter(ctx, dim, state.Get(dim)); err != nil {
			return dashboard.View{}, err
		}
	}
	v := d.View()
	if v.Err != nil {
		return v, v.Err
	}
	return v, nil
}

// newTable returns a borderless, left-aligned table writer.
func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
}

func writeTable(
	w io.Writer, title string, header []string, rows [][]string,
) error {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (none)")
		return nil
	}
	table := newTable(w)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	return nil
}

// writeDashboard prints the filters and every aggregate of v.
func writeDashboard(w io.Writer, v dashboard.View) error {
	a := v.Aggregates
	fmt.Fprintf(w, "Insights: %d\n", a.Records)
	if len(v.Filters) == 0 {
		fmt.Fprintln(w, "Filters: none")
	} else {
		var parts []string
		for _, d := range filter.Dimensions {
			if val, ok := v.Filters[string(d)]; ok {
				parts = append(parts, string(d)+"="+val)
			}
		}
		fmt.Fprintf(w, "Filters: %s\n", strings.Join(parts, ", "))
	}

	tables := []struct {
		title  string
		header []string
		rows   [][]string
	}{
		{"Sectors", []string{"sector", "count"}, countRows(a.SectorCounts)},
		{"Topics", []string{"topic", "count"}, countRows(a.TopicFrequency)},
		{"Regions", []string{"region", "count", "share"}, regionRows(a.Regions)},
		{"Intensity by end year", []string{"year", "records", "total", "average"},
			yearRows(a.YearlyIntensity)},
		{"Average intensity by country", []string{"country", "records", "average"},
			countryRows(a.CountryIntensity)},
		{"Recent insights", []string{"title", "topic", "country", "end year"},
			recentRows(a.Recent)},
	}
	for _, t := range tables {
		if err := writeTable(w, t.title, t.header, t.rows); err != nil {
			return err
		}
	}
	fmt.Fprintf(w,
		"\nBubble points: %d  Scatter points: %d\n",
		len(a.Bubbles), len(a.Scatter),
	)
	return nil
}

func countRows(counts []aggregate.Count) [][]string {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Key, strconv.Itoa(c.Count)}
	}
	return rows
}

func regionRows(d aggregate.Distribution) [][]string {
	rows := make([][]string, len(d.Slices))
	for i, s := range d.Slices {
		rows[i] = []string{
			s.Key, strconv.Itoa(s.Count),
			fmt.Sprintf("%.1f%%", d.Percent(i)),
		}
	}
	return rows
}

func yearRows(totals []aggregate.YearTotal) [][]string {
	rows := make([][]string, len(totals))
	for i, y := range totals {
		rows[i] = []string{
			y.Year.String(), strconv.Itoa(y.Count),
			formatNumber(y.Sum), formatNumber(y.Average()),
		}
	}
	return rows
}

func countryRows(avgs []aggregate.CountryAverage) [][]string {
	rows := make([][]string, len(avgs))
	for i, c := range avgs {
		rows[i] = []string{
			c.Country, strconv.Itoa(c.Count), formatNumber(c.Avg),
		}
	}
	return rows
}

func recentRows(recs []insight.Record) [][]string {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		topic, _ := r.TopicValue()
		country, _ := r.CountryValue()
		rows[i] = []string{
			truncate(r.TitleText(), 60), topic, country,
			r.EndYear.String(),
		}
	}
	return rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
