package filter

import (
	"sort"

	"github.com/wesm/insightview/internal/insight"
)

// Matches reports whether r satisfies every parameter in p by
// exact equality on the field's text. A record missing a
// filtered field never matches. Years compare by their text, so
// "2030" matches both the number 2030 and the string "2030".
func (p Params) Matches(r insight.Record) bool {
	for key, want := range p {
		got, ok := r.Dimension(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Apply returns the records of recs that match p, in order.
func (p Params) Apply(recs []insight.Record) []insight.Record {
	out := make([]insight.Record, 0, len(recs))
	for _, r := range recs {
		if p.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// OptionsFrom collects the distinct values of every dashboard
// dimension present in recs. Text values sort lexically; end
// years sort numerically with non-numeric years last.
func OptionsFrom(recs []insight.Record) Options {
	opts := Options{}
	for _, d := range Dimensions {
		seen := map[string]bool{}
		vals := []string{}
		for _, r := range recs {
			v, ok := r.Dimension(string(d))
			if !ok || seen[v] {
				continue
			}
			seen[v] = true
			vals = append(vals, v)
		}
		if d == EndYear {
			sortYears(vals)
		} else {
			sort.Strings(vals)
		}
		opts[d] = vals
	}
	return opts
}

func sortYears(vals []string) {
	sort.SliceStable(vals, func(i, j int) bool {
		a, aok := insight.TextYear(vals[i]).Number()
		b, bok := insight.TextYear(vals[j]).Number()
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		}
		return vals[i] < vals[j]
	})
}
