// Package scheduler wires up the cron jobs: the periodic fetch cycle,
// the nightly retention sweep and the midnight reset of per-user daily
// counters.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/retention"
	"jobfunnel-engine/internal/store"
)

type Scheduler struct {
	cron  *cron.Cron
	db    *sql.DB
	hub   *events.Hub
	cfgFn func() config.Config
	fetch func()
}

// New builds a Scheduler. cfgFn is read at every tick so config edits
// apply without a restart; fetch runs one full fetch cycle.
func New(db *sql.DB, hub *events.Hub, cfgFn func() config.Config, fetch func()) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		db:    db,
		hub:   hub,
		cfgFn: cfgFn,
		fetch: fetch,
	}
}

// Start registers the jobs and starts the scheduler. A fetch cycle also
// runs immediately so a fresh install has jobs before the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := s.cfgFn().Fetching.IntervalMinutes
	if interval <= 0 {
		interval = 30
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", interval), s.fetch); err != nil {
		return fmt.Errorf("cron.AddFunc fetch: %w", err)
	}

	// nightly sweep at 03:00 local
	if _, err := s.cron.AddFunc("0 3 * * *", func() { s.runRetention(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc retention: %w", err)
	}

	// midnight: everyone gets fresh daily budgets
	if _, err := s.cron.AddFunc("0 0 * * *", func() { s.resetCounters(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc reset: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] started fetch_interval=%dm", interval)

	go s.fetch()
	return nil
}

// Stop shuts the scheduler down; running jobs finish first.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("[scheduler] stopped")
}

func (s *Scheduler) runRetention(ctx context.Context) {
	if _, _, err := retention.Run(ctx, s.db, s.cfgFn(), s.hub); err != nil {
		log.Printf("[scheduler] retention: %v", err)
	}
}

func (s *Scheduler) resetCounters(ctx context.Context) {
	n, err := store.ResetAllDailyCounters(ctx, s.db)
	if err != nil {
		log.Printf("[scheduler] reset counters: %v", err)
		return
	}
	log.Printf("[scheduler] daily counters reset users=%d", n)
}
