package domain

import "time"

// User is one Telegram account talking to the bot. The counters back
// the daily refresh/vacancy limits and reset at midnight.
type User struct {
	ID             int64
	TelegramID     int64
	Username       string
	RefreshCount   int
	VacanciesCount int
	LastResetDate  time.Time
}

// KeywordPref is a user's interest signal: normalized keyword text plus
// a signed weight (positive boosts, negative penalizes).
type KeywordPref struct {
	UserID  int64
	Keyword string
	Weight  int
}

// Status of a job already surfaced to a user. Once any of these is
// recorded the job is never delivered to that user again.
const (
	StatusSent    = "sent"
	StatusApplied = "applied"
	StatusSkipped = "skipped"
)
