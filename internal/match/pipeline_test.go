package match

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfunnel-engine/internal/domain"
)

type stubWeights struct {
	byUser map[int64]map[string]int
	err    error
}

func (s stubWeights) WeightsForUser(_ context.Context, userID int64) (map[string]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byUser[userID], nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testPipeline(weights map[string]int) Pipeline {
	return Pipeline{
		Weights: stubWeights{byUser: map[int64]map[string]int{1: weights}},
		Now:     fixedNow,
	}
}

func TestPipeline_NoKeywordsMeansNilResult(t *testing.T) {
	p := testPipeline(nil)
	jobs := []domain.Job{
		{ID: 1, Title: "Python Developer"},
		{ID: 2, Title: "Go Developer"},
	}

	got, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err, "a keywordless user is a configuration gap, not a failure")
	assert.Nil(t, got, "nil marks the no-keywords outcome")
}

func TestPipeline_EmptyCandidatePool(t *testing.T) {
	p := testPipeline(map[string]int{"python": 10})

	got, err := p.FilterJobsForUser(context.Background(), 1, nil)
	require.NoError(t, err)
	require.NotNil(t, got, "keywords exist, so the empty pool is still not the nil outcome")
	assert.Empty(t, got)
}

func TestPipeline_ThresholdIsStrict(t *testing.T) {
	// Score 2 passes threshold 0, fails threshold 2 and 3.
	job := domain.Job{ID: 1, Title: "Backend Engineer", Skills: []string{"SQL"}}
	weights := map[string]int{"sql": 4}

	for _, tt := range []struct {
		threshold int
		want      int
	}{
		{0, 1},
		{1, 1},
		{2, 0},
		{3, 0},
	} {
		p := testPipeline(weights)
		p.Threshold = tt.threshold

		got, err := p.FilterJobsForUser(context.Background(), 1, []domain.Job{job})
		require.NoError(t, err)
		assert.Len(t, got, tt.want, "threshold=%d", tt.threshold)
	}
}

func TestPipeline_NegativeThresholdAdmitsNegativeScores(t *testing.T) {
	p := testPipeline(map[string]int{"senior": -5})
	p.Threshold = -10

	got, err := p.FilterJobsForUser(context.Background(), 1, []domain.Job{
		{ID: 1, Title: "Senior Developer"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, -5, got[0].Score)
}

func TestPipeline_AllBelowThreshold(t *testing.T) {
	p := testPipeline(map[string]int{"rust": 10})

	got, err := p.FilterJobsForUser(context.Background(), 1, []domain.Job{
		{ID: 1, Title: "Python Developer"},
		{ID: 2, Title: "Java Developer"},
	})
	require.NoError(t, err)
	// Non-nil even when empty: callers read nil as "no keywords", so
	// "keywords but no matches" must come back as an empty slice.
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPipeline_RankingOrder(t *testing.T) {
	older := fixedNow().Add(-48 * time.Hour)
	newer := fixedNow().Add(-1 * time.Hour)

	// Scores: job1=10 (newer), job2=30, job3=10 (older).
	jobs := []domain.Job{
		{ID: 1, Title: "Python Developer", LastSeen: newer},
		{ID: 2, Title: "Python Developer", Skills: []string{"django"}, LastSeen: older},
		{ID: 3, Title: "Python Developer", LastSeen: older},
	}

	p := testPipeline(map[string]int{"python": 10, "django": 40})

	got, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(2), got[0].Job.ID, "highest score first")
	assert.Equal(t, int64(1), got[1].Job.ID, "newer job wins the tie")
	assert.Equal(t, int64(3), got[2].Job.ID)
	assert.Equal(t, 30, got[0].Score)
	assert.Equal(t, 10, got[1].Score)
	assert.Equal(t, 10, got[2].Score)
}

func TestPipeline_TieBreakFallsBackToJobID(t *testing.T) {
	seen := fixedNow().Add(-time.Hour)
	jobs := []domain.Job{
		{ID: 9, Title: "Go Developer", LastSeen: seen},
		{ID: 3, Title: "Go Developer", LastSeen: seen},
		{ID: 5, Title: "Go Developer", LastSeen: seen},
	}
	p := testPipeline(map[string]int{"go": 10})

	got, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Job.ID)
	assert.Equal(t, int64(5), got[1].Job.ID)
	assert.Equal(t, int64(9), got[2].Job.ID)
}

func TestPipeline_CapKeepsHighestScoring(t *testing.T) {
	var jobs []domain.Job
	for i := 1; i <= 500; i++ {
		job := domain.Job{
			ID:       int64(i),
			Title:    "Python Developer",
			LastSeen: fixedNow().Add(-time.Duration(i) * time.Minute),
		}
		// Jobs 1..100 get a boosting skill so they outscore the rest.
		if i <= 100 {
			job.Skills = []string{"kubernetes"}
		}
		jobs = append(jobs, job)
	}

	p := testPipeline(map[string]int{"python": 10, "kubernetes": 8})
	p.MaxResults = 100

	got, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err)
	require.Len(t, got, 100)
	for _, m := range got {
		assert.Equal(t, 14, m.Score, "cap must keep the top scorers, job %d", m.Job.ID)
	}
}

func TestPipeline_DefaultMaxResults(t *testing.T) {
	var jobs []domain.Job
	for i := 1; i <= DefaultMaxResults+50; i++ {
		jobs = append(jobs, domain.Job{ID: int64(i), Title: "Go Developer"})
	}
	p := testPipeline(map[string]int{"go": 5})

	got, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err)
	assert.Len(t, got, DefaultMaxResults)
}

func TestPipeline_DuplicateIdentityAppearsOnce(t *testing.T) {
	job := domain.Job{ID: 7, Title: "Python Developer"}
	p := testPipeline(map[string]int{"python": 10})

	got, err := p.FilterJobsForUser(context.Background(), 1, []domain.Job{job, job, job})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPipeline_ArchivedJobsExcluded(t *testing.T) {
	past := fixedNow().Add(-time.Hour)
	future := fixedNow().Add(time.Hour)

	jobs := []domain.Job{
		{ID: 1, Title: "Python Developer", ArchivedAt: &past},
		{ID: 2, Title: "Python Developer", ArchivedAt: &future},
		{ID: 3, Title: "Python Developer"},
	}
	p := testPipeline(map[string]int{"python": 100})

	got, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err)
	require.Len(t, got, 2, "past archive hides a job regardless of score")
	assert.Equal(t, int64(2), got[0].Job.ID)
	assert.Equal(t, int64(3), got[1].Job.ID)
}

func TestPipeline_WeightLookupFailureIsDistinct(t *testing.T) {
	cause := errors.New("store unavailable")
	p := Pipeline{Weights: stubWeights{err: cause}, Now: fixedNow}

	got, err := p.FilterJobsForUser(context.Background(), 42, []domain.Job{{ID: 1}})
	require.Error(t, err)
	assert.Nil(t, got)

	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, int64(42), le.UserID)
	assert.Equal(t, "loading keyword weights", le.Phase)
	assert.ErrorIs(t, err, cause)
}

func TestPipeline_DenormalizedWeightsStillMatch(t *testing.T) {
	// The pipeline re-normalizes whatever the source hands back.
	p := testPipeline(map[string]int{" Python ": 10})

	got, err := p.FilterJobsForUser(context.Background(), 1, []domain.Job{
		{ID: 1, Title: "python developer"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Score)
}

func TestPipeline_RepeatedRunsAreIdentical(t *testing.T) {
	var jobs []domain.Job
	for i := 1; i <= 60; i++ {
		jobs = append(jobs, domain.Job{
			ID:       int64(i),
			Title:    fmt.Sprintf("Engineer %d", i),
			Skills:   []string{"python", "go"},
			LastSeen: fixedNow().Add(-time.Duration(i%7) * time.Hour),
		})
	}
	p := testPipeline(map[string]int{"python": 9, "go": 4, "engineer": 3})

	first, err := p.FilterJobsForUser(context.Background(), 1, jobs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := p.FilterJobsForUser(context.Background(), 1, jobs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNarrowByRegion(t *testing.T) {
	jobs := []domain.Job{
		{ID: 1, Location: "Warszawa"},
		{ID: 2, Location: "Kraków"},
		{ID: 3, Location: "Warszawa, Kraków"},
		{ID: 4, Location: ""},
		{ID: 5, Location: "Remote"},
	}

	got := NarrowByRegion(jobs, "kraków")
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, int64(4), got[2].ID, "a job without a location survives the restriction")
}

func TestNarrowByRegion_CaseInsensitive(t *testing.T) {
	jobs := []domain.Job{{ID: 1, Location: "WARSZAWA"}}

	got := NarrowByRegion(jobs, "  Warszawa ")
	require.Len(t, got, 1)
}

func TestNarrowByRegion_EmptyRegionKeepsAll(t *testing.T) {
	jobs := []domain.Job{
		{ID: 1, Location: "Warszawa"},
		{ID: 2, Location: "Kraków"},
	}
	assert.Equal(t, jobs, NarrowByRegion(jobs, ""))
	assert.Equal(t, jobs, NarrowByRegion(jobs, "   "))
}
