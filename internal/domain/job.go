package domain

import "time"

// Job is one scraped posting. URL is the natural dedup key across
// fetchers; LastSeen is refreshed every time a fetcher re-observes the
// same URL. ArchivedAt is written by retention only, everything else
// just reads it.
type Job struct {
	ID         int64
	Title      string
	Company    string
	Location   string
	Salary     string
	Skills     []string
	URL        string
	LastSeen   time.Time
	ArchivedAt *time.Time
}

// Archived reports whether the posting is archived as of now. An
// archived_at in the future means "scheduled", the job is still live.
func (j Job) Archived(now time.Time) bool {
	return j.ArchivedAt != nil && !j.ArchivedAt.After(now)
}
