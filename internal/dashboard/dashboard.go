// Package dashboard drives the filter-to-aggregate cycle: filter
// changes build a query, a record source answers it, and every
// aggregate is recomputed from the returned collection.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/insightview/internal/aggregate"
	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
	"github.com/wesm/insightview/internal/metrics"
)

// ErrStale is returned when a fetch result arrives after a newer
// fetch was dispatched. The result is discarded.
var ErrStale = errors.New("stale response discarded")

// OptionsSource supplies the legal values of each filter
// dimension.
type OptionsSource interface {
	FilterOptions(ctx context.Context) (filter.Options, error)
}

// RecordSource returns the records matching a query.
type RecordSource interface {
	Insights(
		ctx context.Context, p filter.Params,
	) ([]insight.Record, error)
}

// Ticket identifies one dispatched fetch.
type Ticket struct {
	Seq    uint64
	Params filter.Params
}

// View is a snapshot of the dashboard.
type View struct {
	Seq        uint64              `json:"seq"`
	Filters    map[string]string   `json:"filters"`
	Params     filter.Params       `json:"params"`
	Options    filter.Options      `json:"options"`
	Aggregates aggregate.Dashboard `json:"aggregates"`
	Err        error               `json:"-"`
}

// Dashboard holds filter state and the aggregates of the most
// recently accepted record collection. It is safe for concurrent
// use.
type Dashboard struct {
	options OptionsSource
	records RecordSource

	mu       sync.Mutex
	state    filter.State
	opts     filter.Options
	seq      uint64 // latest dispatched
	applied  uint64 // seq of the collection in current
	params   filter.Params
	current  aggregate.Dashboard
	err      error
	inflight context.CancelFunc
}

// New creates a dashboard with every filter unset and an empty
// collection.
func New(options OptionsSource, records RecordSource) *Dashboard {
	return &Dashboard{
		options: options,
		records: records,
		state:   filter.NewState(),
		opts:    filter.Options{},
		params:  filter.Params{},
		current: aggregate.Compute(nil),
	}
}

// Init fetches filter options and the unfiltered collection
// concurrently. An options failure is logged and leaves the
// options empty; a record failure is returned.
func (d *Dashboard) Init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts, err := d.options.FilterOptions(gctx)
		if err != nil {
			metrics.RecordFetchError("options")
			log.Printf("filter options: %v", err)
			opts = filter.Options{}
		}
		d.mu.Lock()
		d.opts = opts
		d.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		return d.Refresh(gctx)
	})
	return g.Wait()
}

// SetFilter selects value for dim and refetches. An empty value
// unsets the dimension.
func (d *Dashboard) SetFilter(
	ctx context.Context, dim filter.Dimension, value string,
) error {
	d.mu.Lock()
	d.state = d.state.Set(dim, value)
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// ClearFilter unsets dim and refetches.
func (d *Dashboard) ClearFilter(
	ctx context.Context, dim filter.Dimension,
) error {
	return d.SetFilter(ctx, dim, "")
}

// Reset unsets every filter and refetches.
func (d *Dashboard) Reset(ctx context.Context) error {
	d.mu.Lock()
	d.state = filter.NewState()
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// Refresh fetches the collection for the current filters.
// Returns ErrStale when a newer fetch superseded this one.
func (d *Dashboard) Refresh(ctx context.Context) error {
	t, fctx, cancel := d.dispatch(ctx)
	defer cancel()
	recs, err := d.records.Insights(fctx, t.Params)
	return d.Complete(t, recs, err)
}

// Dispatch tags a fetch for the current filters with the next
// sequence number. Callers that run their own fetch pass the
// ticket to Complete.
func (d *Dashboard) Dispatch() Ticket {
	t, _, cancel := d.dispatch(context.Background())
	cancel()
	return t
}

// dispatch cancels any fetch still in flight and starts a new one.
func (d *Dashboard) dispatch(
	ctx context.Context,
) (Ticket, context.Context, context.CancelFunc) {
	fctx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight != nil {
		d.inflight()
	}
	d.inflight = cancel
	d.seq++
	return Ticket{
		Seq:    d.seq,
		Params: filter.BuildQuery(d.state),
	}, fctx, cancel
}

// Complete applies the result of the fetch identified by t.
// A result for any ticket but the latest is discarded with
// ErrStale. On fetch failure the previous collection and its
// aggregates are kept and the error is recorded in the View.
func (d *Dashboard) Complete(
	t Ticket, recs []insight.Record, fetchErr error,
) error {
	d.mu.Lock()
	if t.Seq != d.seq {
		d.mu.Unlock()
		metrics.RecordStale()
		return ErrStale
	}
	if fetchErr != nil {
		d.err = fmt.Errorf("fetching records: %w", fetchErr)
		err := d.err
		d.mu.Unlock()
		metrics.RecordFetchError("records")
		log.Printf("dashboard: %v", err)
		return err
	}
	d.mu.Unlock()

	// Aggregation runs outside the lock; the sequence is checked
	// again before the result is stored.
	agg := aggregate.Compute(recs)

	d.mu.Lock()
	defer d.mu.Unlock()
	if t.Seq != d.seq {
		metrics.RecordStale()
		return ErrStale
	}
	d.current = agg
	d.applied = t.Seq
	d.params = t.Params
	d.err = nil
	return nil
}

// Options returns the filter options fetched by Init.
func (d *Dashboard) Options() filter.Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// State returns the current filter state.
func (d *Dashboard) State() filter.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// View returns a snapshot of the current state and aggregates.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	filters := make(map[string]string)
	for _, dim := range d.state.Active() {
		filters[string(dim)] = d.state.Get(dim)
	}
	return View{
		Seq:        d.applied,
		Filters:    filters,
		Params:     d.params,
		Options:    d.opts,
		Aggregates: d.current,
		Err:        d.err,
	}
}
