package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dop-amin/foosball-tracker/brackets"
	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

type BracketService interface {
	// GenerateBracket builds the single-elimination grid for a tournament in
	// setup and moves it to active. Byes are resolved as part of generation.
	GenerateBracket(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error)
	// RecordResult resolves one bracket cell, advances the winner to the
	// next round and, on the final, completes the tournament. Both players
	// of the played match must occupy the cell.
	RecordResult(ctx context.Context, tournamentID, round, slot, winnerID, loserID int, matchID *int) (*models.BracketMatch, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	bracketRepo    repositories.BracketMatchRepository
	generator      brackets.BracketGenerator
	hub            *brackets.Hub
	logger         *slog.Logger

	// Serializes bracket mutation per process; two results for the same
	// tournament must not interleave.
	mu sync.Mutex
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	bracketRepo repositories.BracketMatchRepository,
	generator brackets.BracketGenerator,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		bracketRepo:    bracketRepo,
		generator:      generator,
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		return nil, err
	}
	if tournament.Status != models.StatusSetup {
		return nil, fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotInSetup, tournamentID, tournament.Status)
	}

	participants, err := s.tournamentRepo.ListParticipants(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	grid, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID: tournamentID,
		Participants: participants,
	})
	if err != nil {
		return nil, err
	}

	for _, bm := range grid {
		if err := s.bracketRepo.Create(ctx, nil, bm); err != nil {
			return nil, fmt.Errorf("failed to persist bracket cell (%d,%d): %w", bm.Round, bm.Slot, err)
		}
	}

	if err := s.transition(ctx, tournament, models.StatusActive); err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, "BRACKET_GENERATED", grid)
	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("cells", len(grid)),
		slog.String("generator", s.generator.GetName()),
	)
	return grid, nil
}

func (s *bracketService) RecordResult(ctx context.Context, tournamentID, round, slot, winnerID, loserID int, matchID *int) (*models.BracketMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		return nil, err
	}
	switch tournament.Status {
	case models.StatusActive:
	case models.StatusCompleted:
		return nil, fmt.Errorf("%w: tournament %d", ErrTournamentCompleted, tournamentID)
	default:
		return nil, fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotActive, tournamentID, tournament.Status)
	}

	cell, err := s.bracketRepo.GetByRoundSlot(ctx, tournamentID, round, slot)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketMatchNotFound) {
			return nil, fmt.Errorf("%w: round %d slot %d", ErrBracketMatchNotFound, round, slot)
		}
		return nil, err
	}
	if cell.Resolved() {
		return nil, fmt.Errorf("%w: round %d slot %d", ErrBracketMatchResolved, round, slot)
	}
	if cell.Player1ID == nil || cell.Player2ID == nil {
		return nil, fmt.Errorf("%w: round %d slot %d", ErrBracketSlotsUnfilled, round, slot)
	}
	// Оба участника матча обязаны занимать эту ячейку.
	p1, p2 := *cell.Player1ID, *cell.Player2ID
	if !(winnerID == p1 && loserID == p2) && !(winnerID == p2 && loserID == p1) {
		return nil, fmt.Errorf("%w: players %d and %d do not occupy round %d slot %d",
			ErrBracketSlotMismatch, winnerID, loserID, round, slot)
	}

	cell.WinnerID = &winnerID
	cell.MatchID = matchID
	if err := s.bracketRepo.Update(ctx, nil, cell); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.MarkEliminated(ctx, nil, tournamentID, loserID); err != nil {
		return nil, err
	}

	next, err := s.bracketRepo.GetByRoundSlot(ctx, tournamentID, round+1, brackets.NextSlot(slot))
	switch {
	case err == nil:
		if brackets.FeedsSideOne(slot) {
			next.Player1ID = &winnerID
		} else {
			next.Player2ID = &winnerID
		}
		if err := s.bracketRepo.Update(ctx, nil, next); err != nil {
			return nil, err
		}
		s.broadcast(tournamentID, "BRACKET_UPDATED", cell)
	case errors.Is(err, repositories.ErrBracketMatchNotFound):
		// Финал: следующего раунда нет.
		if err := s.tournamentRepo.UpdateWinner(ctx, nil, tournamentID, &winnerID); err != nil {
			return nil, err
		}
		if err := s.transition(ctx, tournament, models.StatusCompleted); err != nil {
			return nil, err
		}
		s.broadcast(tournamentID, "TOURNAMENT_COMPLETED", map[string]int{
			"tournament_id": tournamentID,
			"winner_id":     winnerID,
		})
		s.logger.Info("tournament completed",
			slog.Int("tournament_id", tournamentID),
			slog.Int("winner_id", winnerID),
		)
	default:
		return nil, err
	}

	return cell, nil
}

// transition moves the tournament strictly forward through its lifecycle.
func (s *bracketService) transition(ctx context.Context, tournament *models.Tournament, to models.TournamentStatus) error {
	if !isValidStatusTransition(tournament.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, to)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, to, time.Now().UTC()); err != nil {
		return err
	}
	tournament.Status = to
	return nil
}

func (s *bracketService) broadcast(tournamentID int, msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	room := strconv.Itoa(tournamentID)
	s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    msgType,
		Payload: payload,
		RoomID:  room,
	})
}
