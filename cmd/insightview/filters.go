package main

import (
	"flag"

	"github.com/wesm/insightview/internal/filter"
)

// filterFlags holds one string flag per filter dimension.
type filterFlags map[filter.Dimension]*string

// registerFilterFlags adds a -<dimension> flag for each of dims.
func registerFilterFlags(
	fs *flag.FlagSet, dims []filter.Dimension,
) filterFlags {
	ff := make(filterFlags, len(dims))
	for _, d := range dims {
		ff[d] = fs.String(string(d), "",
			"Only insights whose "+string(d)+" equals this value")
	}
	return ff
}

// state returns the selection as a filter State. Only dashboard
// dimensions are included.
func (ff filterFlags) state() filter.State {
	s := filter.NewState()
	for _, d := range filter.Dimensions {
		if v, ok := ff[d]; ok {
			s = s.Set(d, *v)
		}
	}
	return s
}

// params returns every non-empty flag as query parameters.
func (ff filterFlags) params() filter.Params {
	p := filter.Params{}
	for d, v := range ff {
		if *v != "" {
			p[string(d)] = *v
		}
	}
	return p
}
