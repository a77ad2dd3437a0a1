package db

import (
	"context"
	"fmt"
)

// Stats summarizes the stored insights collection.
type Stats struct {
	InsightCount int   `json:"insight_count"`
	TopicCount   int   `json:"topic_count"`
	SectorCount  int   `json:"sector_count"`
	RegionCount  int   `json:"region_count"`
	CountryCount int   `json:"country_count"`
	LastLoad     *Load `json:"last_load"`
}

// GetStats returns record and distinct-dimension counts, plus
// the most recent load if any.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM insights),
			(SELECT COUNT(DISTINCT topic) FROM insights
				WHERE topic != ''),
			(SELECT COUNT(DISTINCT sector) FROM insights
				WHERE sector != ''),
			(SELECT COUNT(DISTINCT region) FROM insights
				WHERE region != ''),
			(SELECT COUNT(DISTINCT country) FROM insights
				WHERE country != '')`

	var s Stats
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.InsightCount,
		&s.TopicCount,
		&s.SectorCount,
		&s.RegionCount,
		&s.CountryCount,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	s.LastLoad, err = db.LastLoad(ctx)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
