package models

import "time"

// MatchKind соответствует ENUM в БД.
type MatchKind string

const (
	KindSingles MatchKind = "1v1"
	KindDoubles MatchKind = "2v2"
	KindTwoVOne MatchKind = "2v1"
)

// MaxScore is the score a team plays to. A match ending MaxScore to zero
// is a shutout and feeds the cake ledger.
const MaxScore = 10

type Match struct {
	ID         int        `json:"id" db:"id"`
	Kind       MatchKind  `json:"kind" db:"kind"`
	Team1Score int        `json:"team1_score" db:"team1_score"`
	Team2Score int        `json:"team2_score" db:"team2_score"`
	StartTime  time.Time  `json:"start_time" db:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty" db:"end_time"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`

	// Populated by the repository, one row per player.
	Players []MatchPlayer `json:"players,omitempty" db:"-"`
}

// IsShutout reports whether the loser was whitewashed: winner at exactly
// MaxScore, loser at zero. A 9-0 result is not a shutout.
func (m *Match) IsShutout() bool {
	if m.Team1Score == MaxScore && m.Team2Score == 0 {
		return true
	}
	return m.Team2Score == MaxScore && m.Team1Score == 0
}

// DurationMinutes returns nil when the match has no recorded end time.
func (m *Match) DurationMinutes() *int {
	if m.EndTime == nil {
		return nil
	}
	mins := int(m.EndTime.Sub(m.StartTime).Minutes())
	return &mins
}

// WinningTeam returns 1 or 2. Scores are validated at recording time, so a
// stored match always has a winner.
func (m *Match) WinningTeam() int {
	if m.Team1Score > m.Team2Score {
		return 1
	}
	return 2
}

// MatchPlayer is the join row between a match and a player. RatingDelta is
// nil until the rating engine has processed the match; a non-nil delta marks
// the match as already rated.
type MatchPlayer struct {
	ID          int  `json:"id" db:"id"`
	MatchID     int  `json:"match_id" db:"match_id"`
	PlayerID    int  `json:"player_id" db:"player_id"`
	Team        int  `json:"team" db:"team"`
	IsWinner    bool `json:"is_winner" db:"is_winner"`
	RatingDelta *int `json:"rating_delta,omitempty" db:"rating_delta"`
}
