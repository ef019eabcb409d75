package fetch

import (
	"context"

	"jobfunnel-engine/internal/domain"
)

// Result is one source's haul from a single cycle. Finalize, when set,
// runs only after the jobs were saved; the email fetcher uses it to
// mark alert messages seen, so a crashed save re-reads them next time.
// Exactly one of Finalize or Discard runs per result: Discard releases
// whatever Finalize would have used when the haul is abandoned.
type Result struct {
	Source   string
	Jobs     []domain.Job
	Finalize func(ctx context.Context) error
	Discard  func()
}

// Fetcher is one job source. Fetch errors fail that source only, never
// the cycle.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (Result, error)
}

// Status is the last cycle's outcome, surfaced by the HTTP API.
type Status struct {
	LastRunAt     string `json:"last_run_at"`
	LastOkAt      string `json:"last_ok_at"`
	LastError     string `json:"last_error"`
	LastAdded     int    `json:"last_added"`
	LastRefreshed int    `json:"last_refreshed"`
	Running       bool   `json:"running"`
}
