package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// RecalculationService rebuilds every ledger that is derived from match
// history. Ratings go first; debts and snapshots each replay the history on
// their own and can run in parallel.
type RecalculationService interface {
	RederiveAll(ctx context.Context) error
}

type recalculationService struct {
	rating    RatingService
	debts     CakeDebtService
	snapshots SnapshotService
	logger    *slog.Logger
}

func NewRecalculationService(rating RatingService, debts CakeDebtService, snapshots SnapshotService, logger *slog.Logger) RecalculationService {
	return &recalculationService{
		rating:    rating,
		debts:     debts,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (s *recalculationService) RederiveAll(ctx context.Context) error {
	if err := s.rating.RecalculateAll(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.debts.RebuildAll(gctx) })
	g.Go(func() error { return s.snapshots.RecalculateAllSnapshots(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("derived state rebuilt")
	return nil
}
