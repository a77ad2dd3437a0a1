package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/wesm/insightview/internal/filter"
)

// maxSQLVars is the maximum bind variables per IN clause to stay
// within SQLite's default SQLITE_MAX_VARIABLE_NUMBER (999).
const maxSQLVars = 500

// inPlaceholders returns a "(?,?,...)" string and []any args for
// a slice of string IDs.
func inPlaceholders(ids []string) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(ph, ",") + ")", args
}

// queryChunked executes a callback for each chunk of IDs,
// splitting at maxSQLVars to avoid SQLite bind-variable limits.
func queryChunked(
	ids []string,
	fn func(chunk []string) error,
) error {
	for i := 0; i < len(ids); i += maxSQLVars {
		end := min(i+maxSQLVars, len(ids))
		if err := fn(ids[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// PruneCandidate is a stored insight selected for deletion.
type PruneCandidate struct {
	RowID   string
	Title   string
	Topic   string
	Country string
	EndYear string
}

// FindPruneCandidates returns the insights matching p. An empty
// p matches nothing, so a bare prune never empties the store.
func (db *DB) FindPruneCandidates(
	ctx context.Context, p filter.Params,
) ([]PruneCandidate, error) {
	if where, _ := buildInsightFilter(p); where == "1=1" {
		return nil, fmt.Errorf(
			"at least one filter is required",
		)
	}
	stored, err := db.listStored(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]PruneCandidate, len(stored))
	for i, s := range stored {
		c := PruneCandidate{
			RowID:   strconv.FormatInt(s.RowID, 10),
			Title:   s.TitleText(),
			EndYear: s.EndYear.String(),
		}
		c.Topic, _ = s.TopicValue()
		c.Country, _ = s.CountryValue()
		out[i] = c
	}
	return out, nil
}

// DeleteInsights removes insights by row ID and returns how many
// rows were deleted.
func (db *DB) DeleteInsights(
	ctx context.Context, ids []string,
) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var total int
	err := db.Update(func(tx *sql.Tx) error {
		return queryChunked(ids, func(chunk []string) error {
			ph, args := inPlaceholders(chunk)
			res, err := tx.ExecContext(ctx,
				"DELETE FROM insights WHERE id IN "+ph, args...,
			)
			if err != nil {
				return fmt.Errorf("deleting insights: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += int(n)
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
