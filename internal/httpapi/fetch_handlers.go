package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/fetch"
)

type FetchHandler struct {
	FetchStatus *atomic.Value // fetch.Status
	Hub         *events.Hub
	RunFetch    func(onNewJobs func(added int)) (added, refreshed int, err error)
}

func (h FetchHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.FetchStatus.Load().(fetch.Status)
	writeJSON(w, st)
}

func (h FetchHandler) Run(w http.ResponseWriter, r *http.Request) {
	st := h.FetchStatus.Load().(fetch.Status)
	if st.Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	h.FetchStatus.Store(fetch.Status{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	go func() {
		added, refreshed, err := h.RunFetch(func(added int) {
			h.Hub.Publish(events.Make("", events.TypeJobsFetched, map[string]any{"added": added}))
		})

		now := time.Now().Format(time.RFC3339)
		next := h.FetchStatus.Load().(fetch.Status)
		next.Running = false
		next.LastRunAt = now
		next.LastAdded = added
		next.LastRefreshed = refreshed
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.FetchStatus.Store(next)
	}()

	writeJSON(w, map[string]any{"ok": true})
}
