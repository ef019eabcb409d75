package fetch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "fetch_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))
	return db
}

// stubFetcher hands back a canned Result so the run loop's
// save/finalize/discard ordering can be observed.
type stubFetcher struct {
	jobs     []domain.Job
	finalize func(ctx context.Context) error
	discard  func()
}

func (s *stubFetcher) Name() string { return "stub" }

func (s *stubFetcher) Fetch(ctx context.Context) (Result, error) {
	return Result{Source: s.Name(), Jobs: s.jobs, Finalize: s.finalize, Discard: s.discard}, nil
}

func TestRunOnce_FinalizeRunsAfterSaveOnLiveContext(t *testing.T) {
	db := openTestDB(t)

	var finalized bool
	var ctxErrAtFinalize error
	var savedAtFinalize int

	f := &stubFetcher{
		jobs: []domain.Job{{Title: "Go Developer", Company: "Acme", URL: "https://example.com/jobs/1"}},
		finalize: func(ctx context.Context) error {
			finalized = true
			ctxErrAtFinalize = ctx.Err()
			savedAtFinalize, _ = store.CountJobs(ctx, db.Pool)
			return nil
		},
		discard: func() { t.Error("discard must not run after a clean save") },
	}

	added, refreshed, err := RunOnce(db.Pool, []Fetcher{f}, time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, refreshed)

	require.True(t, finalized, "finalize must run after a clean save")
	assert.NoError(t, ctxErrAtFinalize, "finalize needs a live context to flag messages seen")
	assert.Equal(t, 1, savedAtFinalize, "the haul must already be saved when finalize runs")
}

func TestRunOnce_SaveFailureDiscardsInsteadOfFinalizing(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Close())

	var discarded bool
	f := &stubFetcher{
		jobs:     []domain.Job{{Title: "Go Developer", URL: "https://example.com/jobs/1"}},
		finalize: func(ctx context.Context) error { t.Error("finalize must not run when the save fails"); return nil },
		discard:  func() { discarded = true },
	}

	added, refreshed, err := RunOnce(db.Pool, []Fetcher{f}, time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, refreshed)
	assert.True(t, discarded, "an abandoned haul must release its session")
}

func TestRunOnce_NoFetchers(t *testing.T) {
	added, refreshed, err := RunOnce(nil, nil, time.Minute, nil)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, refreshed)
}
