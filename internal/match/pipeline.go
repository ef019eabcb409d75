package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"jobfunnel-engine/internal/domain"
)

// WeightSource supplies a user's keyword→weight map. An unknown user
// yields an empty map and a nil error; a non-nil error means the
// lookup itself failed and the caller should retry or report, not
// treat the user as keywordless.
type WeightSource interface {
	WeightsForUser(ctx context.Context, userID int64) (map[string]int, error)
}

// Match pairs a job with its relevance score for one user.
type Match struct {
	Job   domain.Job
	Score int
}

// LookupError reports a collaborator failure during filtering. It is
// distinct from an empty result so "store is down" never reads as
// "user has no keywords".
type LookupError struct {
	UserID int64
	Phase  string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("match: user %d: %s: %v", e.UserID, e.Phase, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

const (
	// DefaultThreshold keeps only strictly positive scores.
	DefaultThreshold = 0
	// DefaultMaxResults bounds downstream storage and delivery cost,
	// not correctness.
	DefaultMaxResults = 500
)

// Pipeline filters and ranks a candidate pool for one user. After the
// weight lookup it is a pure function of its inputs: no I/O, no shared
// state, safe to run concurrently across users and to recompute at
// will.
type Pipeline struct {
	Weights WeightSource

	// Threshold keeps a job only when its score is strictly greater.
	// It may be negative.
	Threshold int

	// MaxResults caps the output length; <= 0 means DefaultMaxResults.
	MaxResults int

	// Now is a test hook for the archived-job cutoff. Nil means
	// time.Now.
	Now func() time.Time
}

// FilterJobsForUser scores every candidate against the user's keyword
// weights and returns the surviving (job, score) pairs ordered by
// score descending, then last_seen descending, then job id ascending.
//
// A user with no keywords gets a nil slice and a nil error. When the
// user has keywords the returned slice is never nil, even when nothing
// survives; callers rely on nil-vs-empty to tell "add keywords first"
// apart from "no matches today". Archived jobs and duplicate
// identities (first occurrence wins) never appear in the output. The
// caller owns candidate pool selection; any upstream narrowing
// (region, source) composes in front of this.
func (p Pipeline) FilterJobsForUser(ctx context.Context, userID int64, candidates []domain.Job) ([]Match, error) {
	weights, err := p.Weights.WeightsForUser(ctx, userID)
	if err != nil {
		return nil, &LookupError{UserID: userID, Phase: "loading keyword weights", Err: err}
	}
	weights = NormalizeWeights(weights)
	if len(weights) == 0 {
		// Configure-before-use gate, not a failure.
		return nil, nil
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	seen := make(map[int64]bool, len(candidates))
	matches := make([]Match, 0, len(candidates))
	for _, job := range candidates {
		if seen[job.ID] {
			continue
		}
		seen[job.ID] = true

		if job.Archived(now) {
			continue
		}
		if s := Score(job, weights); s > p.Threshold {
			matches = append(matches, Match{Job: job, Score: s})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Job.LastSeen.Equal(b.Job.LastSeen) {
			return a.Job.LastSeen.After(b.Job.LastSeen)
		}
		return a.Job.ID < b.Job.ID
	})

	limit := p.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// NarrowByRegion keeps jobs whose location mentions the region,
// case-insensitively. An empty region keeps everything. Jobs with no
// location stay in: remote and unlocated postings must not vanish the
// moment a user restricts their region.
func NarrowByRegion(jobs []domain.Job, region string) []domain.Job {
	region = NormalizeKeyword(region)
	if region == "" {
		return jobs
	}
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if strings.TrimSpace(j.Location) == "" || strings.Contains(lower(j.Location), region) {
			out = append(out, j)
		}
	}
	return out
}
