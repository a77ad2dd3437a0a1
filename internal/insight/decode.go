package insight

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrNotArray is returned when a dataset is valid JSON but not an
// array of records.
var ErrNotArray = errors.New("dataset is not a JSON array")

// Dataset is the result of decoding an insight dataset.
type Dataset struct {
	Records []Record
	// Skipped counts array elements that were not JSON objects.
	Skipped int
}

// Decode parses a JSON array of insight objects. Malformed fields
// are dropped per record; only invalid JSON or a non-array
// document is an error.
func Decode(data []byte) (Dataset, error) {
	if !gjson.ValidBytes(data) {
		return Dataset{}, fmt.Errorf("decoding dataset: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return Dataset{}, ErrNotArray
	}

	var ds Dataset
	ds.Records = make([]Record, 0, int(root.Get("#").Int()))
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			ds.Skipped++
			return true
		}
		ds.Records = append(ds.Records, recordFrom(item))
		return true
	})
	return ds, nil
}

// UnmarshalJSON decodes a single record with the same tolerance
// as Decode. A non-object decodes as an empty record.
func (r *Record) UnmarshalJSON(data []byte) error {
	v := gjson.ParseBytes(data)
	if !v.IsObject() {
		*r = Record{}
		return nil
	}
	*r = recordFrom(v)
	return nil
}

func recordFrom(obj gjson.Result) Record {
	return Record{
		ID:         idFrom(obj.Get("_id")),
		Title:      stringField(obj, "title"),
		Insight:    stringField(obj, "insight"),
		URL:        stringField(obj, "url"),
		Topic:      stringField(obj, "topic"),
		Sector:     stringField(obj, "sector"),
		Region:     stringField(obj, "region"),
		Pestle:     stringField(obj, "pestle"),
		Country:    stringField(obj, "country"),
		Source:     stringField(obj, "source"),
		City:       stringField(obj, "city"),
		StartYear:  yearFrom(obj.Get("start_year")),
		EndYear:    yearFrom(obj.Get("end_year")),
		Likelihood: numberField(obj, "likelihood"),
		Relevance:  numberField(obj, "relevance"),
		Intensity:  numberField(obj, "intensity"),
		Added:      stringField(obj, "added"),
		Published:  stringField(obj, "published"),
	}
}

// idFrom accepts a plain string id or a Mongo extended-JSON
// {"$oid": "..."} object.
func idFrom(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsObject():
		if oid := v.Get("$oid"); oid.Type == gjson.String {
			return oid.Str
		}
	}
	return ""
}

func stringField(obj gjson.Result, key string) *string {
	v := obj.Get(key)
	if v.Type != gjson.String || v.Str == "" {
		return nil
	}
	s := v.Str
	return &s
}

// numberField keeps zero values; presence rules are applied by
// the Record accessors.
func numberField(obj gjson.Result, key string) *float64 {
	v := obj.Get(key)
	if v.Type != gjson.Number {
		return nil
	}
	n := v.Num
	return &n
}
