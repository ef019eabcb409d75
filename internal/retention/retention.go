// Package retention sweeps the job pool: postings no source has seen
// for a while get archived, and long-archived rows are removed for
// good.
package retention

import (
	"context"
	"database/sql"
	"log"
	"time"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/store"
)

// Run executes one sweep with the configured windows. A zero or
// negative window disables that stage.
func Run(ctx context.Context, db *sql.DB, cfg config.Config, hub *events.Hub) (archived, deleted int64, err error) {
	now := time.Now()

	if d := cfg.Retention.ArchiveAfterDays; d > 0 {
		archived, err = store.ArchiveUnseenSince(ctx, db, now.AddDate(0, 0, -d))
		if err != nil {
			return archived, deleted, err
		}
	}

	if d := cfg.Retention.DeleteAfterDays; d > 0 {
		deleted, err = store.DeleteArchivedBefore(ctx, db, now.AddDate(0, 0, -d))
		if err != nil {
			return archived, deleted, err
		}
	}

	log.Printf("[retention] archived=%d deleted=%d", archived, deleted)
	if hub != nil && (archived > 0 || deleted > 0) {
		hub.Publish(events.Make("", events.TypeJobsArchived, map[string]any{
			"archived": archived,
			"deleted":  deleted,
		}))
	}
	return archived, deleted, nil
}
