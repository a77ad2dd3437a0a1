package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

// Load describes one replacement of the insights collection.
type Load struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Records  int    `json:"record_count"`
	Skipped  int    `json:"skipped"`
	LoadedAt string `json:"loaded_at"`
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const insightBaseCols = `id, doc_id, title, insight, url,
	topic, sector, region, pestle, country, source, city,
	start_year, start_year_numeric, end_year, end_year_numeric,
	likelihood, relevance, intensity, added, published`

// filterColumns maps query parameter names to the columns they
// compare against. Only these names reach SQL.
var filterColumns = map[string]string{
	string(filter.EndYear): "end_year",
	string(filter.Topic):   "topic",
	string(filter.Sector):  "sector",
	string(filter.Region):  "region",
	string(filter.Pestle):  "pestle",
	string(filter.Country): "country",
	string(filter.Source):  "source",
	string(filter.City):    "city",
}

// StoredInsight is an insight record with its row ID.
type StoredInsight struct {
	RowID int64
	insight.Record
}

func scanInsightRow(rs rowScanner) (StoredInsight, error) {
	var (
		s                        StoredInsight
		docID                    sql.NullString
		startYear, endYear       sql.NullString
		startNumeric, endNumeric bool
	)
	err := rs.Scan(
		&s.RowID, &docID, &s.Title, &s.Insight, &s.URL,
		&s.Topic, &s.Sector, &s.Region, &s.Pestle,
		&s.Country, &s.Source, &s.City,
		&startYear, &startNumeric, &endYear, &endNumeric,
		&s.Likelihood, &s.Relevance, &s.Intensity,
		&s.Added, &s.Published,
	)
	if err != nil {
		return StoredInsight{}, err
	}
	s.ID = docID.String
	s.StartYear = insight.ParseStoredYear(startYear.String, startNumeric)
	s.EndYear = insight.ParseStoredYear(endYear.String, endNumeric)
	return s, nil
}

// buildInsightFilter turns query parameters into a WHERE clause.
// Keys are visited in sorted order so the SQL text is stable.
func buildInsightFilter(p filter.Params) (string, []any) {
	keys := make([]string, 0, len(p))
	for k := range p {
		if _, ok := filterColumns[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var preds []string
	var args []any
	for _, k := range keys {
		preds = append(preds, filterColumns[k]+" = ?")
		args = append(args, p[k])
	}
	if len(preds) == 0 {
		return "1=1", nil
	}
	return strings.Join(preds, " AND "), args
}

// yearColumns returns the text and numeric flag stored for y.
func yearColumns(y insight.Year) (any, bool) {
	if y.IsZero() {
		return nil, false
	}
	return y.String(), y.IsNumeric()
}

// ReplaceInsights deletes every stored insight and inserts recs
// in their given order, all within one transaction. A load row
// recording the source and skipped element count is written
// alongside.
func (db *DB) ReplaceInsights(
	ctx context.Context, source string,
	recs []insight.Record, skipped int,
) (Load, error) {
	load := Load{
		ID:       uuid.New().String(),
		Source:   source,
		Records:  len(recs),
		Skipped:  skipped,
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	err := db.Update(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, "DELETE FROM insights",
		); err != nil {
			return fmt.Errorf("clearing insights: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO insights (
				ordinal, load_id, doc_id, title, insight, url,
				topic, sector, region, pestle, country,
				source, city,
				start_year, start_year_numeric,
				end_year, end_year_numeric,
				likelihood, relevance, intensity,
				added, published
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
				?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range recs {
			var docID any
			if r.ID != "" {
				docID = r.ID
			}
			startYear, startNumeric := yearColumns(r.StartYear)
			endYear, endNumeric := yearColumns(r.EndYear)
			if _, err := stmt.ExecContext(ctx,
				i, load.ID, docID, r.Title, r.Insight, r.URL,
				r.Topic, r.Sector, r.Region, r.Pestle, r.Country,
				r.Source, r.City,
				startYear, startNumeric, endYear, endNumeric,
				r.Likelihood, r.Relevance, r.Intensity,
				r.Added, r.Published,
			); err != nil {
				return fmt.Errorf("inserting insight %d: %w", i, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO loads (
				id, source, record_count, skipped, loaded_at
			) VALUES (?, ?, ?, ?, ?)`,
			load.ID, load.Source, load.Records,
			load.Skipped, load.LoadedAt,
		); err != nil {
			return fmt.Errorf("recording load: %w", err)
		}
		return nil
	})
	if err != nil {
		return Load{}, err
	}
	return load, nil
}

// listStored returns stored insights matching p in load order.
func (db *DB) listStored(
	ctx context.Context, p filter.Params,
) ([]StoredInsight, error) {
	where, args := buildInsightFilter(p)
	rows, err := db.reader.QueryContext(ctx,
		"SELECT "+insightBaseCols+
			" FROM insights WHERE "+where+
			" ORDER BY ordinal", args...)
	if err != nil {
		return nil, fmt.Errorf("querying insights: %w", err)
	}
	defer rows.Close()

	out := []StoredInsight{}
	for rows.Next() {
		s, err := scanInsightRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning insight: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListInsights returns the insights matching every parameter in
// p, in the order they were loaded. Empty p returns everything.
func (db *DB) ListInsights(
	ctx context.Context, p filter.Params,
) ([]insight.Record, error) {
	stored, err := db.listStored(ctx, p)
	if err != nil {
		return nil, err
	}
	recs := make([]insight.Record, len(stored))
	for i, s := range stored {
		recs[i] = s.Record
	}
	return recs, nil
}

// CountInsights returns how many insights match p.
func (db *DB) CountInsights(
	ctx context.Context, p filter.Params,
) (int, error) {
	where, args := buildInsightFilter(p)
	var n int
	err := db.reader.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM insights WHERE "+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting insights: %w", err)
	}
	return n, nil
}

// FilterOptions returns the distinct non-empty values of each
// filter dimension. Text values sort lexically; end years sort
// numerically with non-numeric years after them.
func (db *DB) FilterOptions(
	ctx context.Context,
) (filter.Options, error) {
	opts := filter.Options{}
	for _, d := range filter.Dimensions {
		col := filterColumns[string(d)]
		order := col
		if d == filter.EndYear {
			order = "end_year GLOB '[0-9]*' DESC," +
				" CAST(end_year AS REAL), end_year"
		}
		vals, err := db.distinct(ctx, col, order)
		if err != nil {
			return nil, fmt.Errorf("options for %s: %w", d, err)
		}
		opts[d] = vals
	}
	return opts, nil
}

func (db *DB) distinct(
	ctx context.Context, col, order string,
) ([]string, error) {
	// GROUP BY lets the ORDER BY use columns outside the
	// select list, which SELECT DISTINCT does not allow.
	rows, err := db.reader.QueryContext(ctx, fmt.Sprintf(
		`SELECT %[1]s FROM insights
		WHERE %[1]s IS NOT NULL AND %[1]s != ''
		GROUP BY %[1]s ORDER BY %[2]s`, col, order,
	))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vals := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

// LastLoad returns the most recent load, or nil when the
// collection has never been loaded.
func (db *DB) LastLoad(ctx context.Context) (*Load, error) {
	var l Load
	err := db.reader.QueryRowContext(ctx, `
		SELECT id, source, record_count, skipped, loaded_at
		FROM loads ORDER BY loaded_at DESC, rowid DESC LIMIT 1`,
	).Scan(&l.ID, &l.Source, &l.Records, &l.Skipped, &l.LoadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching last load: %w", err)
	}
	return &l, nil
}
