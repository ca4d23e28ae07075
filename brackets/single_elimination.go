package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dop-amin/foosball-tracker/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a single elimination bracket (minimum 2)")
	ErrInvalidSeeding        = errors.New("participant seeds must be unique and contiguous from 1")
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds the full arena for a seeded field. The bracket size
// is the smallest power of two >= the participant count; missing opponents
// are byes, which land on the top seeds and are resolved immediately with the
// present player propagated into round 2. Round 1 is the first round and
// round k (the highest) is the final.
func (g *SingleEliminationGenerator) GenerateBracket(_ context.Context, params GenerateBracketParams) ([]*models.BracketMatch, error) {
	participants := params.Participants
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	bySeed := make([]*models.TournamentParticipant, n)
	copy(bySeed, participants)
	sort.Slice(bySeed, func(i, j int) bool { return bySeed[i].Seed < bySeed[j].Seed })
	for i, p := range bySeed {
		if p.Seed != i+1 {
			return nil, fmt.Errorf("%w: got seed %d at position %d", ErrInvalidSeeding, p.Seed, i+1)
		}
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)

	// Arena keyed by (round, slot). Every cell exists up front; later rounds
	// start empty and fill as winners propagate.
	arena := make(map[[2]int]*models.BracketMatch)
	all := make([]*models.BracketMatch, 0, bracketSize-1)
	for r := 1; r <= numRounds; r++ {
		slots := bracketSize >> uint(r)
		for s := 1; s <= slots; s++ {
			bm := &models.BracketMatch{
				TournamentID: params.TournamentID,
				Round:        r,
				Slot:         s,
			}
			arena[[2]int{r, s}] = bm
			all = append(all, bm)
		}
	}

	order := seedingOrder(numRounds)
	for s := 1; s <= bracketSize/2; s++ {
		bm := arena[[2]int{1, s}]
		seed1 := order[(s-1)*2]
		seed2 := order[(s-1)*2+1]
		if seed1 <= n {
			pid := bySeed[seed1-1].PlayerID
			bm.Player1ID = &pid
		}
		if seed2 <= n {
			pid := bySeed[seed2-1].PlayerID
			bm.Player2ID = &pid
		}
	}

	// Resolve byes. The minimal bracket size guarantees every round-1 cell
	// has at least one player, so byes never cascade past round 2.
	for s := 1; s <= bracketSize/2; s++ {
		bm := arena[[2]int{1, s}]
		switch {
		case bm.Player1ID != nil && bm.Player2ID == nil:
			bm.WinnerID = bm.Player1ID
		case bm.Player2ID != nil && bm.Player1ID == nil:
			bm.WinnerID = bm.Player2ID
		default:
			continue
		}
		if numRounds > 1 {
			propagate(arena[[2]int{2, NextSlot(s)}], s, *bm.WinnerID)
		}
	}

	return all, nil
}

func propagate(next *models.BracketMatch, fromSlot, winnerID int) {
	w := winnerID
	if FeedsSideOne(fromSlot) {
		next.Player1ID = &w
	} else {
		next.Player2ID = &w
	}
}

// seedingOrder returns the classic pairing permutation of seeds 1..2^k for
// the first round: [1 2] doubles to [1 4 2 3], then [1 8 4 5 2 7 3 6], and
// so on. Adjacent pairs form the round-1 matches, which keeps seeds 1 and 2
// in opposite halves so they can only meet in the final.
func seedingOrder(numRounds int) []int {
	order := []int{1, 2}
	for r := 2; r <= numRounds; r++ {
		size := 1 << uint(r)
		next := make([]int, 0, size)
		for _, seed := range order {
			next = append(next, seed, size+1-seed)
		}
		order = next
	}
	return order
}
