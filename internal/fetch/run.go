package fetch

import (
	"context"
	"database/sql"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"jobfunnel-engine/internal/store"
)

// RunOnce runs every fetcher concurrently, funnels results through a
// single save step, and reports pool growth. One broken source loses
// its own haul only.
func RunOnce(db *sql.DB, fetchers []Fetcher, timeout time.Duration, onNewJobs func(added int)) (added, refreshed int, err error) {
	if len(fetchers) == 0 {
		return 0, 0, nil
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	parent := context.Background()

	var g errgroup.Group
	results := make(chan Result, len(fetchers))

	for _, f := range fetchers {
		f := f
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(parent, timeout)
			defer cancel()

			log.Printf("[%s] running...", f.Name())
			res, err := f.Fetch(fctx)
			if err != nil {
				log.Printf("[%s] error: %v", f.Name(), err)
				return nil // best-effort: don't cancel siblings
			}
			results <- res
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	saveCtx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	for res := range results {
		log.Printf("[fetch] source=%s jobs=%d finalize=%v",
			res.Source, len(res.Jobs), res.Finalize != nil)

		a, r, serr := store.UpsertJobs(saveCtx, db, res.Jobs)
		if serr != nil {
			log.Printf("[fetch] save error source=%s: %v", res.Source, serr)
			if res.Discard != nil {
				res.Discard()
			}
			continue
		}
		added += a
		refreshed += r

		// Finalize only after a clean save; unfinalized sources get
		// replayed next cycle and the url unique index absorbs it.
		if res.Finalize != nil {
			if ferr := res.Finalize(saveCtx); ferr != nil {
				log.Printf("[fetch] finalize error source=%s: %v", res.Source, ferr)
			}
		}
	}

	if added > 0 && onNewJobs != nil {
		onNewJobs(added)
	}
	return added, refreshed, nil
}
