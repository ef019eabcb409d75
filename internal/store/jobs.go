package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"jobfunnel-engine/internal/domain"
)

const (
	maxTitleLen    = 255
	maxLocationLen = 255
)

// UpsertJobs writes a fetch batch. New URLs insert; known URLs only get
// their last_seen refreshed — everything else about a job is immutable
// after first observation.
func UpsertJobs(ctx context.Context, db *sql.DB, jobs []domain.Job) (added, refreshed int, err error) {
	if len(jobs) == 0 {
		return 0, 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	seen := make(map[string]bool, len(jobs))

	for _, j := range jobs {
		url := strings.TrimSpace(j.URL)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true

		skillsJSON, _ := json.Marshal(nonNil(j.Skills))

		res, ierr := tx.ExecContext(ctx, `
INSERT INTO jobs(title, company, location, salary, skills, url, last_seen)
VALUES(?,?,?,?,?,?,?)
ON CONFLICT(url) DO NOTHING;`,
			clip(j.Title, maxTitleLen), j.Company, clip(j.Location, maxLocationLen),
			j.Salary, string(skillsJSON), url, now,
		)
		if ierr != nil {
			return 0, 0, fmt.Errorf("insert job url=%q: %w", url, ierr)
		}

		n, _ := res.RowsAffected()
		if n > 0 {
			added++
			continue
		}

		if _, uerr := tx.ExecContext(ctx,
			`UPDATE jobs SET last_seen = ? WHERE url = ?;`, now, url,
		); uerr != nil {
			return 0, 0, fmt.Errorf("refresh last_seen url=%q: %w", url, uerr)
		}
		refreshed++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return added, refreshed, nil
}

// ListJobs returns the full candidate pool, newest observation first.
// Archived rows are included; excluding them is the filter pipeline's
// decision, not the store's.
func ListJobs(ctx context.Context, db *sql.DB) ([]domain.Job, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, title, company, location, salary, skills, url, last_seen, archived_at
FROM jobs
ORDER BY last_seen DESC, id ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// GetJob loads one job by id. ErrNotFound when it doesn't exist.
func GetJob(ctx context.Context, db *sql.DB, id int64) (domain.Job, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, title, company, location, salary, skills, url, last_seen, archived_at
FROM jobs
WHERE id = ?;`, id)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return domain.Job{}, ErrNotFound
	}
	return j, err
}

// CountJobs reports pool size; the health endpoint shows it.
func CountJobs(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (domain.Job, error) {
	var j domain.Job
	var skillsJSON, lastSeen string
	var archivedAt sql.NullString

	if err := r.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Salary,
		&skillsJSON, &j.URL, &lastSeen, &archivedAt,
	); err != nil {
		return domain.Job{}, err
	}

	_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
	j.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	if archivedAt.Valid && archivedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, archivedAt.String); err == nil {
			j.ArchivedAt = &t
		}
	}
	return j, nil
}

// clip truncates to at most n bytes, backing up so a multi-byte rune
// is never split. Polish and Ukrainian titles hit this.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
