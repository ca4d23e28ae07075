package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

// CakeDebtService tracks the cake debts a 10-0 loss earns. Every member of
// the losing side owes every member of the winning side one cake, per shutout.
type CakeDebtService interface {
	OnMatchRecorded(ctx context.Context, match *models.Match) error
	// Settle reduces the first `amount` cakes of the debtor->creditor pair,
	// flooring at zero. It never touches the opposite direction: debts in
	// the two directions of a pair live independently.
	Settle(ctx context.Context, debtorID, creditorID, amount int) (*models.Debt, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.Debt, error)
	ListAll(ctx context.Context) ([]*models.Debt, error)
	// RebuildAll wipes the debt table and re-derives it from match history.
	RebuildAll(ctx context.Context) error
}

type cakeDebtService struct {
	debtRepo  repositories.DebtRepository
	matchRepo repositories.MatchRepository

	mu sync.Mutex
}

func NewCakeDebtService(debtRepo repositories.DebtRepository, matchRepo repositories.MatchRepository) CakeDebtService {
	return &cakeDebtService{debtRepo: debtRepo, matchRepo: matchRepo}
}

func (s *cakeDebtService) OnMatchRecorded(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(ctx, match)
}

func (s *cakeDebtService) recordLocked(ctx context.Context, match *models.Match) error {
	if !match.IsShutout() {
		return nil
	}
	winning := match.WinningTeam()
	for _, loser := range match.Players {
		if loser.Team == winning {
			continue
		}
		for _, winner := range match.Players {
			if winner.Team != winning {
				continue
			}
			if err := s.debtRepo.Increment(ctx, nil, loser.PlayerID, winner.PlayerID, 1); err != nil {
				return fmt.Errorf("failed to charge cake %d->%d (match %d): %w", loser.PlayerID, winner.PlayerID, match.ID, err)
			}
		}
	}
	return nil
}

func (s *cakeDebtService) Settle(ctx context.Context, debtorID, creditorID, amount int) (*models.Debt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSettleAmountInvalid, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	debt, err := s.debtRepo.GetByPair(ctx, debtorID, creditorID)
	if err != nil {
		if errors.Is(err, repositories.ErrDebtNotFound) {
			return nil, fmt.Errorf("%w: %d -> %d", ErrDebtNotFound, debtorID, creditorID)
		}
		return nil, err
	}

	remaining := debt.Outstanding - amount
	if remaining < 0 {
		remaining = 0
	}
	if err := s.debtRepo.UpdateOutstanding(ctx, nil, debt.ID, remaining); err != nil {
		return nil, err
	}
	debt.Outstanding = remaining
	return debt, nil
}

func (s *cakeDebtService) ListByPlayer(ctx context.Context, playerID int) ([]*models.Debt, error) {
	return s.debtRepo.ListByPlayer(ctx, playerID)
}

func (s *cakeDebtService) ListAll(ctx context.Context) ([]*models.Debt, error) {
	return s.debtRepo.ListAll(ctx)
}

func (s *cakeDebtService) RebuildAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.debtRepo.DeleteAll(ctx, nil); err != nil {
		return err
	}
	matches, err := s.matchRepo.ListChronological(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to list matches for debt rebuild: %w", err)
	}
	for _, match := range matches {
		if err := s.recordLocked(ctx, match); err != nil {
			return err
		}
	}
	return nil
}
