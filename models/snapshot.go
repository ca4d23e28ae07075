package models

import "time"

// RankSnapshot is one player's leaderboard position on one calendar day.
// SnapshotDate carries no time component; at most one row exists per
// (player, date) pair.
type RankSnapshot struct {
	ID           int       `json:"id" db:"id"`
	PlayerID     int       `json:"player_id" db:"player_id"`
	SnapshotDate time.Time `json:"snapshot_date" db:"snapshot_date"`
	Rank         int       `json:"rank" db:"rank"`
	Rating       int       `json:"rating" db:"rating"`
	TotalGames   int       `json:"total_games" db:"total_games"`
}
