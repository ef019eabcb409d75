package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/match"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, Migrate(d.Pool))
	return d.Pool
}

func TestUpsertJobs_InsertThenRefresh(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	batch := []domain.Job{
		{Title: "Python Developer", Company: "ABC", URL: "https://example.com/a", Skills: []string{"python"}},
		{Title: "Go Developer", Company: "DEF", URL: "https://example.com/b"},
	}

	added, refreshed, err := UpsertJobs(ctx, db, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, refreshed)

	// Same URLs again: nothing new, last_seen refreshed.
	added, refreshed, err = UpsertJobs(ctx, db, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 2, refreshed)

	jobs, err := ListJobs(ctx, db)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestUpsertJobs_DuplicateURLWithinBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	added, refreshed, err := UpsertJobs(ctx, db, []domain.Job{
		{Title: "A", Company: "X", URL: "https://example.com/same"},
		{Title: "B", Company: "Y", URL: "https://example.com/same"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, refreshed)
}

func TestUpsertJobs_SkipsEmptyURL(t *testing.T) {
	db := openTestDB(t)

	added, _, err := UpsertJobs(context.Background(), db, []domain.Job{
		{Title: "No URL", Company: "X"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestUpsertJobs_ClipsLongTitle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	_, _, err := UpsertJobs(ctx, db, []domain.Job{
		{Title: string(long), Company: "X", URL: "https://example.com/long"},
	})
	require.NoError(t, err)

	jobs, err := ListJobs(ctx, db)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Len(t, jobs[0].Title, maxTitleLen)
}

func TestGetJob_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetJob(context.Background(), db, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeywords_UpsertOverwritesWeight(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 777, "tester")
	require.NoError(t, err)

	kw, err := UpsertKeyword(ctx, db, user.ID, "  Python ", 10)
	require.NoError(t, err)
	assert.Equal(t, "python", kw, "keyword stored normalized")

	_, err = UpsertKeyword(ctx, db, user.ID, "python", 25)
	require.NoError(t, err)

	weights, err := UserKeywordWeights(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"python": 25}, weights)
}

func TestKeywords_EmptyKeywordRejected(t *testing.T) {
	db := openTestDB(t)

	_, err := UpsertKeyword(context.Background(), db, 1, "   ", 5)
	assert.Error(t, err)
}

func TestKeywords_UnknownUserHasEmptyWeights(t *testing.T) {
	db := openTestDB(t)

	weights, err := UserKeywordWeights(context.Background(), db, 999)
	require.NoError(t, err, "unknown user is not an error")
	assert.Empty(t, weights)
}

func TestKeywords_Delete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 778, "")
	require.NoError(t, err)

	_, err = UpsertKeyword(ctx, db, user.ID, "sql", 4)
	require.NoError(t, err)

	require.NoError(t, DeleteKeyword(ctx, db, user.ID, "SQL"))
	assert.ErrorIs(t, DeleteKeyword(ctx, db, user.ID, "sql"), ErrNotFound)
}

func TestWeightSource_ImplementsMatchInterface(t *testing.T) {
	var _ match.WeightSource = WeightSource{}
}

func TestGetOrCreateUser_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u1, err := GetOrCreateUser(ctx, db, 42, "alice")
	require.NoError(t, err)
	u2, err := GetOrCreateUser(ctx, db, 42, "alice")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
}

func TestFilteredSnapshot_ReplaceAndDeliverInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 100, "")
	require.NoError(t, err)

	_, _, err = UpsertJobs(ctx, db, []domain.Job{
		{Title: "Python Developer", Company: "A", URL: "https://example.com/1"},
		{Title: "Senior Python Developer", Company: "B", URL: "https://example.com/2"},
		{Title: "Go Developer", Company: "C", URL: "https://example.com/3"},
	})
	require.NoError(t, err)

	jobs, err := ListJobs(ctx, db)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	byURL := map[string]domain.Job{}
	for _, j := range jobs {
		byURL[j.URL] = j
	}

	matches := []match.Match{
		{Job: byURL["https://example.com/2"], Score: 20},
		{Job: byURL["https://example.com/1"], Score: 10},
	}
	require.NoError(t, ReplaceFilteredJobs(ctx, db, user.ID, matches))

	n, err := CountFilteredJobs(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Delivery walks the snapshot best-first, never repeating.
	first, score, err := NextUnseenJob(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/2", first.URL)
	assert.Equal(t, 20, score)
	require.NoError(t, MarkJobSent(ctx, db, user.ID, first.ID))

	second, score, err := NextUnseenJob(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1", second.URL)
	assert.Equal(t, 10, score)
	require.NoError(t, MarkJobSent(ctx, db, user.ID, second.ID))

	_, _, err = NextUnseenJob(ctx, db, user.ID)
	assert.ErrorIs(t, err, ErrNotFound, "snapshot exhausted")
}

func TestFilteredSnapshot_ReplaceDropsOldEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 101, "")
	require.NoError(t, err)

	_, _, err = UpsertJobs(ctx, db, []domain.Job{
		{Title: "A", Company: "X", URL: "https://example.com/a"},
	})
	require.NoError(t, err)
	jobs, _ := ListJobs(ctx, db)

	require.NoError(t, ReplaceFilteredJobs(ctx, db, user.ID, []match.Match{{Job: jobs[0], Score: 5}}))
	require.NoError(t, ReplaceFilteredJobs(ctx, db, user.ID, nil))

	n, err := CountFilteredJobs(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSetUserJobStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 102, "")
	require.NoError(t, err)
	_, _, err = UpsertJobs(ctx, db, []domain.Job{
		{Title: "A", Company: "X", URL: "https://example.com/s"},
	})
	require.NoError(t, err)
	jobs, _ := ListJobs(ctx, db)

	require.NoError(t, MarkJobSent(ctx, db, user.ID, jobs[0].ID))
	require.NoError(t, SetUserJobStatus(ctx, db, user.ID, jobs[0].ID, domain.StatusApplied))
	assert.Error(t, SetUserJobStatus(ctx, db, user.ID, jobs[0].ID, "bogus"))
}

func TestRetention_ArchiveThenDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, _, err := UpsertJobs(ctx, db, []domain.Job{
		{Title: "Stale", Company: "X", URL: "https://example.com/stale"},
		{Title: "Fresh", Company: "Y", URL: "https://example.com/fresh"},
	})
	require.NoError(t, err)

	// Backdate one row so the archive sweep catches it.
	_, err = db.ExecContext(ctx,
		`UPDATE jobs SET last_seen = ? WHERE url = ?;`,
		time.Now().UTC().Add(-30*24*time.Hour).Format(time.RFC3339),
		"https://example.com/stale",
	)
	require.NoError(t, err)

	archived, err := ArchiveUnseenSince(ctx, db, time.Now().UTC().Add(-14*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)

	jobs, err := ListJobs(ctx, db)
	require.NoError(t, err)
	var stale domain.Job
	for _, j := range jobs {
		if j.URL == "https://example.com/stale" {
			stale = j
		}
	}
	require.NotNil(t, stale.ArchivedAt)
	assert.True(t, stale.Archived(time.Now().Add(time.Minute)))

	// Not old enough to delete yet.
	deleted, err := DeleteArchivedBefore(ctx, db, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	deleted, err = DeleteArchivedBefore(ctx, db, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err := CountJobs(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBumpRefreshCount_DailyLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 103, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := BumpRefreshCount(ctx, db, user, 3)
		require.NoError(t, err)
		assert.True(t, ok, "bump %d under limit", i+1)
		user, err = GetOrCreateUser(ctx, db, 103, "")
		require.NoError(t, err)
	}

	ok, err := BumpRefreshCount(ctx, db, user, 3)
	require.NoError(t, err)
	assert.False(t, ok, "fourth refresh of the day is over the limit")
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	var v int
	require.NoError(t, db.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, schemaVersion, v)
}

func TestRefreshBudgetLeft(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 104, "")
	require.NoError(t, err)
	assert.True(t, RefreshBudgetLeft(user, 3), "fresh user has the whole budget")

	for i := 0; i < 3; i++ {
		require.True(t, RefreshBudgetLeft(user, 3), "budget left before bump %d", i+1)
		_, err = BumpRefreshCount(ctx, db, user, 3)
		require.NoError(t, err)
		user, err = GetOrCreateUser(ctx, db, 104, "")
		require.NoError(t, err)
	}
	assert.False(t, RefreshBudgetLeft(user, 3), "budget spent for today")

	// Yesterday's spent budget doesn't count.
	stale := user
	stale.LastResetDate = time.Now().UTC().AddDate(0, 0, -1)
	assert.True(t, RefreshBudgetLeft(stale, 3))
}

func TestUserRegion_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 105, "")
	require.NoError(t, err)

	region, err := GetUserRegion(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, region, "no restriction until one is set")

	stored, err := SetUserRegion(ctx, db, user.ID, "  Warszawa ")
	require.NoError(t, err)
	assert.Equal(t, "warszawa", stored)

	region, err = GetUserRegion(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "warszawa", region)

	// One region per user: setting again replaces.
	stored, err = SetUserRegion(ctx, db, user.ID, "Kraków")
	require.NoError(t, err)
	assert.Equal(t, "kraków", stored)

	region, err = GetUserRegion(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "kraków", region)

	require.NoError(t, ClearUserRegion(ctx, db, user.ID))
	region, err = GetUserRegion(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, region)

	assert.ErrorIs(t, ClearUserRegion(ctx, db, user.ID), ErrNotFound)
}

func TestSetUserRegion_RejectsEmpty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := GetOrCreateUser(ctx, db, 106, "")
	require.NoError(t, err)

	_, err = SetUserRegion(ctx, db, user.ID, "   ")
	assert.Error(t, err)
}

func TestClip_RuneBoundary(t *testing.T) {
	// "ł" is two bytes; clipping at 3 must back up to the previous rune.
	assert.Equal(t, "ł", clip("łłł", 3))
	assert.Equal(t, "łł", clip("łłł", 4))
	assert.Equal(t, "abc", clip("abcdef", 3))
	assert.Equal(t, "abc", clip("abc", 10))
	assert.True(t, utf8.ValidString(clip("Młodszy Programista Kraków", 9)))
}
