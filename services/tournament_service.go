package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

type TournamentService interface {
	Create(ctx context.Context, name string) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	// AddParticipant seeds a player into a tournament still in setup. Seeds
	// must be unique within the tournament, as must players.
	AddParticipant(ctx context.Context, tournamentID, playerID, seed int) (*models.TournamentParticipant, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	bracketRepo    repositories.BracketMatchRepository
	playerRepo     repositories.PlayerRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	bracketRepo repositories.BracketMatchRepository,
	playerRepo repositories.PlayerRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		bracketRepo:    bracketRepo,
		playerRepo:     playerRepo,
	}
}

func (s *tournamentService) Create(ctx context.Context, name string) (*models.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	tournament := &models.Tournament{
		Name:      name,
		Status:    models.StatusSetup,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
		}
		return nil, err
	}

	participants, err := s.tournamentRepo.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	tournament.Participants = participants

	bracket, err := s.bracketRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	tournament.BracketMatches = bracket
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx)
}

func (s *tournamentService) AddParticipant(ctx context.Context, tournamentID, playerID, seed int) (*models.TournamentParticipant, error) {
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
	if seed < 1 {
		return nil, fmt.Errorf("%w: seed %d", ErrValidationFailed, seed)
	}
	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrPlayerNotFound, playerID)
		}
		return nil, err
	}

	participant := &models.TournamentParticipant{
		TournamentID: tournamentID,
		PlayerID:     playerID,
		Seed:         seed,
	}
	if err := s.tournamentRepo.AddParticipant(ctx, nil, participant); err != nil {
		return nil, err
	}
	return participant, nil
}
