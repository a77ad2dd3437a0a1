package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

func TestFindPruneCandidates(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	loadSample(t, d)

	if _, err := d.FindPruneCandidates(ctx, filter.Params{}); err == nil {
		t.Fatal("expected error for empty filter")
	}

	got, err := d.FindPruneCandidates(ctx, filter.Params{"topic": "oil"})
	if err != nil {
		t.Fatalf("FindPruneCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Title != "Oil demand rises" || got[0].EndYear != "2030" {
		t.Errorf("first candidate = %+v", got[0])
	}
	if got[1].Title != "" || got[1].Country != "India" {
		t.Errorf("second candidate = %+v", got[1])
	}
}

func TestDeleteInsights(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	loadSample(t, d)

	cands, err := d.FindPruneCandidates(ctx, filter.Params{"country": "India"})
	if err != nil {
		t.Fatalf("FindPruneCandidates: %v", err)
	}
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.RowID
	}

	n, err := d.DeleteInsights(ctx, ids)
	if err != nil {
		t.Fatalf("DeleteInsights: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	left, err := d.CountInsights(ctx, nil)
	if err != nil {
		t.Fatalf("CountInsights: %v", err)
	}
	if left != 1 {
		t.Errorf("remaining = %d, want 1", left)
	}

	n, err = d.DeleteInsights(ctx, nil)
	if err != nil || n != 0 {
		t.Errorf("DeleteInsights(nil) = %d, %v", n, err)
	}
}

func TestDeleteInsights_Chunked(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	recs := make([]insight.Record, maxSQLVars+20)
	for i := range recs {
		recs[i] = insight.Record{Topic: str(fmt.Sprintf("t%d", i%3))}
	}
	if _, err := d.ReplaceInsights(ctx, "big.json", recs, 0); err != nil {
		t.Fatalf("ReplaceInsights: %v", err)
	}
	cands, err := d.FindPruneCandidates(ctx, filter.Params{"topic": "t0"})
	if err != nil {
		t.Fatalf("FindPruneCandidates: %v", err)
	}
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.RowID
	}
	// Pad with IDs that do not exist to cross a chunk boundary.
	for i := 0; len(ids) <= maxSQLVars; i++ {
		ids = append(ids, fmt.Sprintf("-%d", i+1))
	}

	n, err := d.DeleteInsights(ctx, ids)
	if err != nil {
		t.Fatalf("DeleteInsights: %v", err)
	}
	if n != len(cands) {
		t.Errorf("deleted %d, want %d", n, len(cands))
	}
}
