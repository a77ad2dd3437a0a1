package dashboard

import (
	"context"

	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

// Static serves options and records from an in-memory
// collection. Options are the distinct values present in it.
type Static struct {
	recs []insight.Record
	opts filter.Options
}

// NewStatic returns a source over recs.
func NewStatic(recs []insight.Record) *Static {
	return &Static{recs: recs, opts: filter.OptionsFrom(recs)}
}

// FilterOptions implements OptionsSource.
func (s *Static) FilterOptions(
	ctx context.Context,
) (filter.Options, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.opts, nil
}

// Insights implements RecordSource.
func (s *Static) Insights(
	ctx context.Context, p filter.Params,
) ([]insight.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Apply(s.recs), nil
}
