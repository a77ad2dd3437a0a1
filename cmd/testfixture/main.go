package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/wesm/insightview/internal/db"
	"github.com/wesm/insightview/internal/sync"
	"github.com/wesm/insightview/internal/testjson"
)

type regionSpec struct {
	region    string
	countries []string
}

var (
	topics = []string{
		"oil", "gas", "market", "consumption", "policy",
		"export", "battery", "climate", "economy", "coal",
		"inflation", "shale", "water", "robot",
	}
	sectors = []string{
		"Energy", "Manufacturing", "Retail", "Financial services",
		"Government", "Aerospace & defence", "Healthcare",
		"Automotive", "Environment", "Transport", "Information Technology",
	}
	pestles = []string{
		"Economic", "Political", "Industries", "Technological",
		"Environmental", "Social", "Organization",
	}
	regions = []regionSpec{
		{"Northern America", []string{"United States of America", "Canada"}},
		{"Western Asia", []string{"Saudi Arabia", "Iran", "Iraq"}},
		{"Southern Asia", []string{"India", "Pakistan"}},
		{"Western Europe", []string{"France", "Germany"}},
		{"Eastern Africa", []string{"Kenya", "Ethiopia"}},
		{"South America", []string{"Brazil", "Argentina"}},
		{"World", nil},
	}
	sources = []string{"EIA", "OPEC", "Reuters", "WSJ", "SBWire"}
)

func main() {
	out := flag.String("out", "", "output dataset path")
	count := flag.Int("n", 1000, "number of records")
	seed := flag.Uint64("seed", 1, "random seed")
	dbPath := flag.String("db", "", "also load the dataset into this database")
	flag.Parse()
	if *out == "" {
		fmt.Fprintln(os.Stderr,
			"usage: testfixture -out <path> [-n 1000] [-seed 1] [-db <path>]")
		os.Exit(1)
	}

	b := generate(*count, *seed)
	if err := b.WriteFile(*out); err != nil {
		log.Fatalf("writing dataset: %v", err)
	}
	fmt.Printf("Wrote %d elements to %s\n", b.Len(), *out)

	if *dbPath == "" {
		return
	}
	if err := os.Remove(*dbPath); err != nil &&
		!errors.Is(err, os.ErrNotExist) {
		log.Fatalf("removing existing db: %v", err)
	}
	if err := loadInto(*dbPath, *out); err != nil {
		log.Fatalf("loading db: %v", err)
	}
	fmt.Printf("Loaded %s into %s\n", *out, *dbPath)
}

// generate builds a deterministic dataset of n records. Roughly
// one record in ten lacks a score, some end years are strings or
// missing, and every fiftieth element is not an object.
func generate(n int, seed uint64) *testjson.DatasetBuilder {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := testjson.NewDatasetBuilder()
	for i := range n {
		if i > 0 && i%50 == 0 {
			b.AddRaw("null")
		}
		reg := regions[r.IntN(len(regions))]
		country := ""
		if len(reg.countries) > 0 {
			country = reg.countries[r.IntN(len(reg.countries))]
		}

		var endYear any
		switch year := 2016 + r.IntN(35); r.IntN(10) {
		case 0:
			endYear = ""
		case 1, 2:
			endYear = fmt.Sprint(year)
		default:
			endYear = year
		}

		f := testjson.Insight(
			topics[r.IntN(len(topics))],
			sectors[r.IntN(len(sectors))],
			reg.region, country, endYear,
			testjson.Fields{
				"pestle":     pestles[r.IntN(len(pestles))],
				"source":     sources[r.IntN(len(sources))],
				"start_year": "",
				"added":      fmt.Sprintf("January, %02d 2017 03:51:25", 1+i%28),
			},
		)
		f["title"] = fmt.Sprintf("Insight %d: %s", i+1, f["title"])
		if r.IntN(10) != 0 {
			for k, v := range testjson.Scores(
				float64(1+r.IntN(4)),
				float64(1+r.IntN(7)),
				float64(r.IntN(100)),
			) {
				f[k] = v
			}
		}
		b.Add(f)
	}
	return b
}

func loadInto(dbPath, dataPath string) error {
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	_, err = sync.NewEngine(database, dataPath).
		Reload(context.Background(), nil)
	return err
}
