package retention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/store"
)

func TestRun_ArchivesStaleJobs(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	ctx := context.Background()
	_, _, err = store.UpsertJobs(ctx, db.Pool, []domain.Job{
		{Title: "Old Job", URL: "https://x/old"},
		{Title: "Fresh Job", URL: "https://x/fresh"},
	})
	require.NoError(t, err)

	// Backdate one row so the archive sweep catches it.
	_, err = db.Pool.ExecContext(ctx,
		`UPDATE jobs SET last_seen = ? WHERE url = ?;`,
		time.Now().UTC().AddDate(0, 0, -30).Format(time.RFC3339), "https://x/old",
	)
	require.NoError(t, err)

	var cfg config.Config
	cfg.Retention.ArchiveAfterDays = 14
	cfg.Retention.DeleteAfterDays = 60

	archived, deleted, err := Run(ctx, db.Pool, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)
	assert.Equal(t, int64(0), deleted)

	// second sweep is a no-op
	archived, deleted, err = Run(ctx, db.Pool, cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, archived)
	assert.Zero(t, deleted)
}

func TestRun_DisabledWindows(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	var cfg config.Config
	archived, deleted, err := Run(context.Background(), db.Pool, cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, archived)
	assert.Zero(t, deleted)
}
