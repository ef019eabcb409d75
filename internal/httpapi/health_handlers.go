package httpapi

import (
	"database/sql"
	"net/http"

	"jobfunnel-engine/internal/store"
)

type HealthHandler struct {
	DB *sql.DB
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := store.CountJobs(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "jobs": n})
}
