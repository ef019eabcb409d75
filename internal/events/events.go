package events

import (
	"encoding/json"
	"time"
)

// Event types the engine publishes over SSE.
const (
	TypeJobsFetched   = "jobs_fetched"   // a fetch cycle added jobs
	TypeJobsArchived  = "jobs_archived"  // retention swept the pool
	TypeSnapshotBuilt = "snapshot_built" // a user's matches were refreshed
	TypeJobSent       = "job_sent"       // a vacancy went out to a user
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Make renders one wire-ready SSE payload.
func Make(reqID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   1,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
