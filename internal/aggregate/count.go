// Package aggregate turns a filtered collection of insight
// records into the shapes each dashboard chart draws. Every
// function is pure: accumulators are local to the call, inputs
// are never modified, and records missing a required field are
// skipped rather than treated as zero.
package aggregate

import (
	"sort"

	"github.com/wesm/insightview/internal/insight"
)

const (
	// CategoryCap bounds the sector and topic count charts.
	CategoryCap = 10
	// CountryCap bounds the country average intensity chart.
	CountryCap = 10
	// YearCap bounds the yearly intensity series.
	YearCap = 15
	// BubbleCap bounds the bubble chart.
	BubbleCap = 50
	// RecentCap bounds the recent insights table.
	RecentCap = 25
)

// Count is the number of records sharing one category value.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Field extracts a categorical value from a record, reporting
// false when the record lacks it.
type Field func(insight.Record) (string, bool)

// CountBy counts records by field in first-seen order. Records
// without the field are skipped.
func CountBy(recs []insight.Record, field Field) []Count {
	index := make(map[string]int)
	out := make([]Count, 0)
	for _, r := range recs {
		key, ok := field(r)
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, Count{Key: key})
		}
		out[i].Count++
	}
	return out
}

// rankCounts sorts by descending count, keeping first-seen order
// among equal counts, and truncates to limit.
func rankCounts(counts []Count, limit int) []Count {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return firstN(counts, limit)
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n:n]
	}
	return s
}

// SectorCounts returns the ten most frequent sectors, highest
// count first.
func SectorCounts(recs []insight.Record) []Count {
	return rankCounts(CountBy(recs, insight.Record.SectorValue), CategoryCap)
}

// SectorCountsFirstSeen returns the first ten sectors in the
// order they appear, with their counts. It does not rank.
func SectorCountsFirstSeen(recs []insight.Record) []Count {
	return firstN(CountBy(recs, insight.Record.SectorValue), CategoryCap)
}

// TopicFrequency returns the ten most frequent topics, highest
// count first.
func TopicFrequency(recs []insight.Record) []Count {
	return rankCounts(CountBy(recs, insight.Record.TopicValue), CategoryCap)
}

// TopicCountsFirstSeen returns the first ten topics in the order
// they appear, with their counts. It does not rank.
func TopicCountsFirstSeen(recs []insight.Record) []Count {
	return firstN(CountBy(recs, insight.Record.TopicValue), CategoryCap)
}

// RecentRecords returns the first n records for the insights
// table.
func RecentRecords(recs []insight.Record, n int) []insight.Record {
	if n < 0 {
		n = 0
	}
	out := make([]insight.Record, 0, min(n, len(recs)))
	return append(out, firstN(recs, n)...)
}
