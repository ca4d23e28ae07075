package brackets

import (
	"context"

	"github.com/dop-amin/foosball-tracker/models"
)

type GenerateBracketParams struct {
	TournamentID int
	// Participants must carry unique seeds 1..N.
	Participants []*models.TournamentParticipant
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.BracketMatch, error)

	GetName() string
}

// NextSlot returns the slot in round r+1 fed by the given slot in round r.
func NextSlot(slot int) int {
	return (slot + 1) / 2
}

// FeedsSideOne reports whether the winner of the given slot occupies side 1
// of the next round's match. Odd slots feed side 1, even slots side 2.
func FeedsSideOne(slot int) bool {
	return slot%2 == 1
}
