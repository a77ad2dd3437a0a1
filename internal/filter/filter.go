// Package filter holds the dashboard's filter dimensions, the
// user's current selection, and the query builder that turns a
// selection into request parameters.
package filter

import (
	"net/url"
	"sort"
)

// Dimension is a filterable field of an insight record.
type Dimension string

const (
	EndYear Dimension = "end_year"
	Topic   Dimension = "topic"
	Sector  Dimension = "sector"
	Region  Dimension = "region"
	Pestle  Dimension = "pestle"
	Country Dimension = "country"

	// Source and City are accepted by the record query but are
	// not offered as dashboard filters.
	Source Dimension = "source"
	City   Dimension = "city"
)

// Dimensions lists the dashboard filter dimensions in display
// order.
var Dimensions = []Dimension{
	EndYear, Topic, Sector, Region, Pestle, Country,
}

// queryable are the keys the record query accepts.
var queryable = map[Dimension]bool{
	EndYear: true, Topic: true, Sector: true, Region: true,
	Pestle: true, Country: true, Source: true, City: true,
}

// ParseDimension returns the dashboard dimension named s.
func ParseDimension(s string) (Dimension, bool) {
	d := Dimension(s)
	for _, known := range Dimensions {
		if d == known {
			return d, true
		}
	}
	return "", false
}

// State is the current selection per dimension. The zero value
// has every dimension unset. State is a value type: Set and
// Clear return a new State and never modify the receiver.
type State struct {
	values map[Dimension]string
}

// NewState returns a State with every dimension unset.
func NewState() State { return State{} }

// Set returns a copy of s with d set to value. An empty value
// unsets d.
func (s State) Set(d Dimension, value string) State {
	next := make(map[Dimension]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	if value == "" {
		delete(next, d)
	} else {
		next[d] = value
	}
	return State{values: next}
}

// Clear returns a copy of s with d unset.
func (s State) Clear(d Dimension) State { return s.Set(d, "") }

// Get returns the selected value for d, or "" when unset.
func (s State) Get(d Dimension) string { return s.values[d] }

// IsEmpty reports whether no dimension is set.
func (s State) IsEmpty() bool { return len(s.values) == 0 }

// Active returns the set dimensions in display order, followed
// by any non-dashboard dimensions sorted by name.
func (s State) Active() []Dimension {
	var out []Dimension
	seen := make(map[Dimension]bool, len(s.values))
	for _, d := range Dimensions {
		if _, ok := s.values[d]; ok {
			out = append(out, d)
			seen[d] = true
		}
	}
	var rest []Dimension
	for d := range s.values {
		if !seen[d] {
			rest = append(rest, d)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

// Params is a sparse set of record query parameters. Only keys
// with a non-empty value are present.
type Params map[string]string

// BuildQuery converts s into query parameters. Unset dimensions
// are omitted. Values are passed through verbatim; the record
// source is the authority on whether a value is legal.
func BuildQuery(s State) Params {
	p := make(Params, len(s.values))
	for d, v := range s.values {
		if v != "" {
			p[string(d)] = v
		}
	}
	return p
}

// ParseParams extracts record query parameters from a URL query.
// Unknown keys and empty values are ignored; other values are
// kept verbatim, whitespace included.
func ParseParams(q url.Values) Params {
	p := make(Params)
	for key, vals := range q {
		if !queryable[Dimension(key)] || len(vals) == 0 {
			continue
		}
		if v := vals[0]; v != "" {
			p[key] = v
		}
	}
	return p
}

// Values converts p to url.Values for transport.
func (p Params) Values() url.Values {
	q := make(url.Values, len(p))
	for k, v := range p {
		q.Set(k, v)
	}
	return q
}

// Encode returns the canonical, key-sorted query string for p.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// Get returns the value for d, or "" when absent.
func (p Params) Get(d Dimension) string { return p[string(d)] }

// Options maps each dashboard dimension to its legal values.
type Options map[Dimension][]string

// Values returns the legal values for d.
func (o Options) Values(d Dimension) []string { return o[d] }

// Empty reports whether no dimension has any option.
func (o Options) Empty() bool {
	for _, vals := range o {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}
