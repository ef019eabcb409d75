package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/match"
	"jobfunnel-engine/internal/store"
)

type UsersHandler struct {
	DB     *sql.DB
	CfgVal *atomic.Value // stores config.Config
	Hub    *events.Hub
}

// ServeByPath dispatches /users/{id}/keywords, /users/{id}/matches and
// /users/{id}/refresh. The stdlib mux can't split these, so we do.
func (h UsersHandler) ServeByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	userID, ok := parseID(parts[0])
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "invalid user id")
		return
	}

	switch parts[1] {
	case "keywords":
		switch r.Method {
		case http.MethodGet:
			h.listKeywords(w, r, userID)
		case http.MethodPost:
			h.upsertKeyword(w, r, userID)
		case http.MethodDelete:
			h.deleteKeyword(w, r, userID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "region":
		switch r.Method {
		case http.MethodGet:
			h.getRegion(w, r, userID)
		case http.MethodPut:
			h.setRegion(w, r, userID)
		case http.MethodDelete:
			h.clearRegion(w, r, userID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "matches":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.previewMatches(w, r, userID)
	case "refresh":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.refreshSnapshot(w, r, userID)
	default:
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (h UsersHandler) listKeywords(w http.ResponseWriter, r *http.Request, userID int64) {
	prefs, err := store.ListKeywords(r.Context(), h.DB, userID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, prefs)
}

type keywordReq struct {
	Keyword string `json:"keyword"`
	Weight  int    `json:"weight"`
}

func (h UsersHandler) upsertKeyword(w http.ResponseWriter, r *http.Request, userID int64) {
	var req keywordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	stored, err := store.UpsertKeyword(r.Context(), h.DB, userID, req.Keyword, req.Weight)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_keyword", err.Error())
		return
	}
	writeJSON(w, map[string]any{"keyword": stored, "weight": req.Weight})
}

func (h UsersHandler) deleteKeyword(w http.ResponseWriter, r *http.Request, userID int64) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_keyword", "keyword query param required")
		return
	}

	err := store.DeleteKeyword(r.Context(), h.DB, userID, keyword)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such keyword")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h UsersHandler) getRegion(w http.ResponseWriter, r *http.Request, userID int64) {
	region, err := store.GetUserRegion(r.Context(), h.DB, userID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]string{"region": region})
}

type regionReq struct {
	Region string `json:"region"`
}

func (h UsersHandler) setRegion(w http.ResponseWriter, r *http.Request, userID int64) {
	var req regionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	stored, err := store.SetUserRegion(r.Context(), h.DB, userID, req.Region)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_region", err.Error())
		return
	}
	writeJSON(w, map[string]string{"region": stored})
}

func (h UsersHandler) clearRegion(w http.ResponseWriter, r *http.Request, userID int64) {
	err := store.ClearUserRegion(r.Context(), h.DB, userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no region set")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h UsersHandler) pipeline() match.Pipeline {
	cfg := h.CfgVal.Load().(config.Config)
	return match.Pipeline{
		Weights:    store.WeightSource{DB: h.DB},
		Threshold:  cfg.Matching.ScoreThreshold,
		MaxResults: cfg.Matching.MaxResults,
	}
}

// candidatePool lists active jobs narrowed to the user's region, if
// any. Both the preview and the snapshot rebuild go through here so
// the two surfaces always see the same jobs.
func (h UsersHandler) candidatePool(r *http.Request, userID int64) ([]domain.Job, error) {
	jobs, err := store.ListJobs(r.Context(), h.DB)
	if err != nil {
		return nil, err
	}
	region, err := store.GetUserRegion(r.Context(), h.DB, userID)
	if err != nil {
		return nil, err
	}
	return match.NarrowByRegion(jobs, region), nil
}

// previewMatches scores the current pool without touching the user's
// saved snapshot.
func (h UsersHandler) previewMatches(w http.ResponseWriter, r *http.Request, userID int64) {
	jobs, err := h.candidatePool(r, userID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	matches, err := h.pipeline().FilterJobsForUser(r.Context(), userID, jobs)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "match_error", err.Error())
		return
	}
	if matches == nil {
		matches = []match.Match{}
	}
	writeJSON(w, matches)
}

// refreshSnapshot rebuilds the user's saved match snapshot from the
// current pool, same as the chat /refresh command but without the daily
// limit bookkeeping.
func (h UsersHandler) refreshSnapshot(w http.ResponseWriter, r *http.Request, userID int64) {
	jobs, err := h.candidatePool(r, userID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	matches, err := h.pipeline().FilterJobsForUser(r.Context(), userID, jobs)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "match_error", err.Error())
		return
	}

	if err := store.ReplaceFilteredJobs(r.Context(), h.DB, userID, matches); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.Make(reqID, events.TypeSnapshotBuilt, map[string]any{
		"user_id": userID,
		"count":   len(matches),
	}))
	writeJSON(w, map[string]any{"ok": true, "count": len(matches)})
}
