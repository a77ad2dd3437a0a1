package db

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

func TestReplaceInsights_RoundTrip(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	load := loadSample(t, d)

	if _, err := uuid.Parse(load.ID); err != nil {
		t.Errorf("load ID %q is not a UUID: %v", load.ID, err)
	}
	if load.Records != 3 || load.Skipped != 1 {
		t.Errorf("load = %+v", load)
	}

	got, err := d.ListInsights(ctx, nil)
	if err != nil {
		t.Fatalf("ListInsights: %v", err)
	}
	want := sampleRecords()
	opt := cmp.AllowUnexported(insight.Year{})
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceInsights_ReplacesPrevious(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	loadSample(t, d)

	next := []insight.Record{{Topic: str("coal")}}
	if _, err := d.ReplaceInsights(ctx, "next.json", next, 0); err != nil {
		t.Fatalf("ReplaceInsights: %v", err)
	}
	got, err := d.ListInsights(ctx, nil)
	if err != nil {
		t.Fatalf("ListInsights: %v", err)
	}
	if len(got) != 1 || *got[0].Topic != "coal" {
		t.Errorf("got %+v, want single coal record", got)
	}

	last, err := d.LastLoad(ctx)
	if err != nil {
		t.Fatalf("LastLoad: %v", err)
	}
	if last == nil || last.Source != "next.json" {
		t.Errorf("LastLoad = %+v, want next.json", last)
	}
}

func TestReplaceInsights_Empty(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	loadSample(t, d)

	if _, err := d.ReplaceInsights(ctx, "empty.json", nil, 0); err != nil {
		t.Fatalf("ReplaceInsights: %v", err)
	}
	got, err := d.ListInsights(ctx, nil)
	if err != nil {
		t.Fatalf("ListInsights: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestListInsights_Filters(t *testing.T) {
	d := testDB(t)
	loadSample(t, d)

	tests := []struct {
		name   string
		params filter.Params
		want   int
	}{
		{"none", filter.Params{}, 3},
		{"topic", filter.Params{"topic": "oil"}, 2},
		{"topic and sector", filter.Params{"topic": "oil", "sector": "Energy"}, 1},
		{"numeric and text year", filter.Params{"end_year": "2030"}, 2},
		{"source", filter.Params{"source": "EIA"}, 1},
		{"no match", filter.Params{"country": "Peru"}, 0},
		{"unknown key ignored", filter.Params{"likelihood": "3"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ListInsights(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("ListInsights: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestListInsights_MatchesInMemoryFilter(t *testing.T) {
	d := testDB(t)
	loadSample(t, d)

	p := filter.Params{"end_year": "2030", "country": "India"}
	got, err := d.ListInsights(context.Background(), p)
	if err != nil {
		t.Fatalf("ListInsights: %v", err)
	}
	want := p.Apply(sampleRecords())
	opt := cmp.AllowUnexported(insight.Year{})
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterOptions(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	opts, err := d.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions: %v", err)
	}
	if !opts.Empty() {
		t.Errorf("empty store options = %v", opts)
	}

	loadSample(t, d)
	if _, err := d.ReplaceInsights(ctx, "more.json", append(
		sampleRecords(),
		insight.Record{EndYear: insight.TextYear("unknown")},
		insight.Record{EndYear: insight.NumberYear(2019), Pestle: str("")},
	), 0); err != nil {
		t.Fatalf("ReplaceInsights: %v", err)
	}

	opts, err = d.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions: %v", err)
	}
	want := filter.Options{
		filter.EndYear: {"2019", "2025", "2030", "unknown"},
		filter.Topic:   {"gas", "oil"},
		filter.Sector:  {"Energy"},
		filter.Region:  {"Central Asia", "Northern America"},
		filter.Pestle:  {"Economic"},
		filter.Country: {"India", "United States of America"},
	}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("FilterOptions mismatch (-want +got):\n%s", diff)
	}
}
