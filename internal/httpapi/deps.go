package httpapi

import (
	"database/sql"
	"sync/atomic"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/events"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic stores
	CfgVal      *atomic.Value // stores config.Config
	FetchStatus *atomic.Value // stores fetch.Status

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Fetch entrypoint (inject for testability)
	RunFetch func(onNewJobs func(added int)) (added, refreshed int, err error)
}
