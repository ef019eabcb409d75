package store

import (
	"context"
	"database/sql"
	"time"
)

// ArchiveUnseenSince stamps archived_at on live jobs no fetcher has
// re-observed since the cutoff. This is the only writer of that
// column; filtering and delivery only read it.
func ArchiveUnseenSince(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
UPDATE jobs
SET archived_at = ?
WHERE archived_at IS NULL AND last_seen < ?;`,
		time.Now().UTC().Format(time.RFC3339),
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteArchivedBefore drops jobs that have sat archived past the
// configured lifetime. Cascades clear snapshot and delivery rows.
func DeleteArchivedBefore(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
DELETE FROM jobs
WHERE archived_at IS NOT NULL AND archived_at < ?;`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
