package models

import "time"

// MatchAudit records a corrective edit to an already committed match.
// Changes holds a JSON document with the before/after field values; Summary
// is the human-readable line shown in the edit history.
type MatchAudit struct {
	ID       int       `json:"id" db:"id"`
	MatchID  int       `json:"match_id" db:"match_id"`
	EditedAt time.Time `json:"edited_at" db:"edited_at"`
	Changes  string    `json:"changes" db:"changes"`
	Summary  string    `json:"summary" db:"summary"`
}
