package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusSetup     TournamentStatus = "setup"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
)

// Tournament представляет турнир. The status machine is strictly forward:
// setup -> active -> completed.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Status      TournamentStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	WinnerID    *int             `json:"winner_id,omitempty" db:"winner_id"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants   []*TournamentParticipant `json:"participants,omitempty" db:"-"`
	BracketMatches []*BracketMatch          `json:"bracket_matches,omitempty" db:"-"`
}

type TournamentParticipant struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	PlayerID     int  `json:"player_id" db:"player_id"`
	Seed         int  `json:"seed" db:"seed"`
	Eliminated   bool `json:"eliminated" db:"eliminated"`
}

// BracketMatch is one cell of the bracket arena, addressed by (round, slot).
// Round 1 is the first round; the winner of (r, s) feeds (r+1, ceil(s/2)),
// odd slots onto side 1 and even slots onto side 2.
type BracketMatch struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	Round        int  `json:"round" db:"round"`
	Slot         int  `json:"slot" db:"slot"`
	Player1ID    *int `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int `json:"player2_id,omitempty" db:"player2_id"`
	WinnerID     *int `json:"winner_id,omitempty" db:"winner_id"`
	MatchID      *int `json:"match_id,omitempty" db:"match_id"`
}

// Resolved reports whether the cell already has a winner (played or bye).
func (bm *BracketMatch) Resolved() bool {
	return bm.WinnerID != nil
}
