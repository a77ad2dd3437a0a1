// Package testjson provides dataset fixture builders for insight
// test data. Used by db, sync, server and client test packages
// and by the testfixture generator.
package testjson

import (
	"encoding/json"
	"os"
	"strings"
)

// Fields is one dataset element's key/value pairs.
type Fields map[string]any

// InsightJSON returns f as a JSON object string.
func InsightJSON(f Fields) string {
	return mustMarshal(map[string]any(f))
}

// Insight returns a record with the common dimension fields
// filled in. Later mods override earlier keys.
func Insight(
	topic, sector, region, country string, endYear any,
	mods ...Fields,
) Fields {
	f := Fields{
		"title":    topic + " outlook for " + country,
		"topic":    topic,
		"sector":   sector,
		"region":   region,
		"country":  country,
		"end_year": endYear,
	}
	for _, m := range mods {
		for k, v := range m {
			f[k] = v
		}
	}
	return f
}

// Scores returns likelihood, relevance and intensity fields.
func Scores(likelihood, relevance, intensity float64) Fields {
	return Fields{
		"likelihood": likelihood,
		"relevance":  relevance,
		"intensity":  intensity,
	}
}

// DatasetBuilder constructs a JSON array dataset element by
// element.
type DatasetBuilder struct {
	elems []string
}

// NewDatasetBuilder returns a new empty DatasetBuilder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{}
}

// Add appends a record element.
func (b *DatasetBuilder) Add(f Fields) *DatasetBuilder {
	b.elems = append(b.elems, InsightJSON(f))
	return b
}

// AddRaw appends raw JSON verbatim, for elements that are not
// records (numbers, strings, null).
func (b *DatasetBuilder) AddRaw(raw string) *DatasetBuilder {
	b.elems = append(b.elems, raw)
	return b
}

// Len returns the number of elements added so far.
func (b *DatasetBuilder) Len() int {
	return len(b.elems)
}

// String returns the dataset as a JSON array, one element per
// line.
func (b *DatasetBuilder) String() string {
	if len(b.elems) == 0 {
		return "[]\n"
	}
	return "[\n" + strings.Join(b.elems, ",\n") + "\n]\n"
}

// Bytes returns the dataset as a JSON array.
func (b *DatasetBuilder) Bytes() []byte {
	return []byte(b.String())
}

// WriteFile writes the dataset to path.
func (b *DatasetBuilder) WriteFile(path string) error {
	return os.WriteFile(path, b.Bytes(), 0o644)
}

// Sample returns a small dataset covering every dimension, a
// string and a numeric end year, absent scores, and one
// non-object element.
func Sample() *DatasetBuilder {
	return NewDatasetBuilder().
		Add(Insight("oil", "Energy", "Northern America",
			"United States of America", 2030,
			Scores(3, 2, 6), Fields{"pestle": "Economic"})).
		Add(Insight("gas", "Energy", "Asia", "India", "2025",
			Scores(4, 3, 12), Fields{"pestle": "Industries"})).
		Add(Insight("oil", "Manufacturing", "Asia", "India", "",
			Fields{"pestle": "Economic", "intensity": 4})).
		AddRaw("42").
		Add(Insight("market", "Retail", "Europe", "France", 2030,
			Scores(2, 1, 9), Fields{"pestle": "Political"}))
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
