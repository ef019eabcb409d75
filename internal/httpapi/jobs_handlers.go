package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"jobfunnel-engine/internal/store"
)

type JobsHandler struct {
	DB *sql.DB
}

// List returns the pool newest first. An optional ?limit=N windows the
// response; anything unparsable falls back to the full pool.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < len(jobs) {
			jobs = jobs[:n]
		}
	}
	writeJSON(w, jobs)
}

func (h JobsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(strings.TrimPrefix(r.URL.Path, "/jobs/"))
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "invalid job id")
		return
	}

	job, err := store.GetJob(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such job")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, job)
}
