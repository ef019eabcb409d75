package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/match"
)

// ReplaceFilteredJobs swaps a user's persisted match snapshot for the
// pipeline's latest output in one transaction. A crashed refresh never
// leaves a half-old, half-new snapshot behind.
func ReplaceFilteredJobs(ctx context.Context, db *sql.DB, userID int64, matches []match.Match) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_filtered_jobs WHERE user_id = ?;`, userID,
	); err != nil {
		return fmt.Errorf("clear filtered jobs for user %d: %w", userID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range matches {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO user_filtered_jobs(user_id, job_id, score, added_at)
VALUES(?,?,?,?)
ON CONFLICT(user_id, job_id) DO UPDATE SET score = excluded.score;`,
			userID, m.Job.ID, m.Score, now,
		); err != nil {
			return fmt.Errorf("save filtered job %d for user %d: %w", m.Job.ID, userID, err)
		}
	}

	return tx.Commit()
}

// CountFilteredJobs reports the current snapshot size, used to tell
// "no snapshot yet" apart from "snapshot exhausted".
func CountFilteredJobs(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_filtered_jobs WHERE user_id = ?;`, userID,
	).Scan(&n)
	return n, err
}

// NextUnseenJob returns the best-ranked job from the user's snapshot
// that has never been delivered to them, with its snapshot score.
// Ordering mirrors the pipeline: score desc, last_seen desc, job id
// asc. ErrNotFound when the snapshot is exhausted (or empty).
func NextUnseenJob(ctx context.Context, db *sql.DB, userID int64) (domain.Job, int, error) {
	row := db.QueryRowContext(ctx, `
SELECT j.id, j.title, j.company, j.location, j.salary, j.skills, j.url,
       j.last_seen, j.archived_at, f.score
FROM user_filtered_jobs f
JOIN jobs j ON j.id = f.job_id
LEFT JOIN user_jobs uj ON uj.user_id = f.user_id AND uj.job_id = f.job_id
WHERE f.user_id = ? AND uj.id IS NULL
ORDER BY f.score DESC, j.last_seen DESC, j.id ASC
LIMIT 1;`, userID)

	var j domain.Job
	var skillsJSON, lastSeen string
	var archivedAt sql.NullString
	var score int

	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Salary,
		&skillsJSON, &j.URL, &lastSeen, &archivedAt, &score,
	)
	if err == sql.ErrNoRows {
		return domain.Job{}, 0, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, 0, err
	}

	unmarshalJobExtras(&j, skillsJSON, lastSeen, archivedAt)
	return j, score, nil
}

// MarkJobSent records delivery so the same job is consumed exactly
// once per user. Idempotent: a re-send keeps the original record.
func MarkJobSent(ctx context.Context, db *sql.DB, userID, jobID int64) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO user_jobs(user_id, job_id, status, sent_at)
VALUES(?,?,?,?)
ON CONFLICT(user_id, job_id) DO NOTHING;`,
		userID, jobID, domain.StatusSent, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SetUserJobStatus flips a delivered job to applied/skipped. Creates
// the delivery record if a callback somehow arrives first.
func SetUserJobStatus(ctx context.Context, db *sql.DB, userID, jobID int64, status string) error {
	switch status {
	case domain.StatusSent, domain.StatusApplied, domain.StatusSkipped:
	default:
		return fmt.Errorf("store: invalid user job status %q", status)
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO user_jobs(user_id, job_id, status, sent_at)
VALUES(?,?,?,?)
ON CONFLICT(user_id, job_id) DO UPDATE SET status = excluded.status;`,
		userID, jobID, status, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func unmarshalJobExtras(j *domain.Job, skillsJSON, lastSeen string, archivedAt sql.NullString) {
	_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
	j.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	if archivedAt.Valid && archivedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, archivedAt.String); err == nil {
			j.ArchivedAt = &t
		}
	}
}
