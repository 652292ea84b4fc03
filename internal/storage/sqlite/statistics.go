package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/memkit/memoryd/internal/errs"
)

// Statistics summarizes the memories table for the Storage Engine's
// statistics() operation.
type Statistics struct {
	TotalMemories int64
	TotalSize     int64
	Oldest        *time.Time
	Newest        *time.Time
	ByType        map[string]int64
}

// Statistics aggregates counts, byte totals, and the oldest/newest
// timestamps across every memory row, plus a per-event-type breakdown.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	var oldest, newest sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(content)), 0), MIN(timestamp), MAX(timestamp)
		FROM memories
	`).Scan(&stats.TotalMemories, &stats.TotalSize, &oldest, &newest)
	if err != nil {
		return Statistics{}, errs.Wrap(errs.Internal, "sqlite.statistics", "failed to aggregate memories", err)
	}
	// MIN/MAX drop the column's DATETIME type, so the driver returns the
	// stored text rather than a time.Time; parse it back here.
	parse := func(s sql.NullString) *time.Time {
		for _, layout := range []string{"2006-01-02 15:04:05.999999999-07:00", time.RFC3339Nano} {
			if t, err := time.Parse(layout, s.String); s.Valid && err == nil {
				return &t
			}
		}
		return nil
	}
	stats.Oldest, stats.Newest = parse(oldest), parse(newest)

	rows, err := s.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM memories GROUP BY event_type`)
	if err != nil {
		return Statistics{}, errs.Wrap(errs.Internal, "sqlite.statistics", "failed to group by event_type", err)
	}
	defer rows.Close()

	stats.ByType = make(map[string]int64)
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return Statistics{}, errs.Wrap(errs.Internal, "sqlite.statistics", "failed to scan event_type count", err)
		}
		stats.ByType[eventType] = count
	}
	return stats, rows.Err()
}
