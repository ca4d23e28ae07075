package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dop-amin/foosball-tracker/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recordFakeMatch(t *testing.T, repo *fakeMatchRepo, kind models.MatchKind, team1, team2 []int, score1, score2 int, start time.Time) *models.Match {
	t.Helper()
	match := &models.Match{
		Kind:       kind,
		Team1Score: score1,
		Team2Score: score2,
		StartTime:  start,
	}
	winning := 1
	if score2 > score1 {
		winning = 2
	}
	for _, id := range team1 {
		match.Players = append(match.Players, models.MatchPlayer{PlayerID: id, Team: 1, IsWinner: winning == 1})
	}
	for _, id := range team2 {
		match.Players = append(match.Players, models.MatchPlayer{PlayerID: id, Team: 2, IsWinner: winning == 2})
	}
	require.NoError(t, repo.Create(context.Background(), nil, match))
	return match
}

func TestComputeDelta(t *testing.T) {
	t.Run("equal ratings", func(t *testing.T) {
		d1, d2, err := ComputeDelta(1500, 1500, 10, 3, 32)
		require.NoError(t, err)
		assert.Equal(t, 16, d1)
		assert.Equal(t, -16, d2)
	})

	t.Run("favorite wins", func(t *testing.T) {
		d1, d2, err := ComputeDelta(1600, 1500, 10, 5, 32)
		require.NoError(t, err)
		assert.Equal(t, 12, d1)
		assert.Equal(t, -12, d2)
	})

	t.Run("underdog wins", func(t *testing.T) {
		d1, d2, err := ComputeDelta(1500, 1600, 10, 5, 32)
		require.NoError(t, err)
		assert.Equal(t, 20, d1)
		assert.Equal(t, -20, d2)
	})

	t.Run("loser delta mirrors by score swap", func(t *testing.T) {
		d1, d2, err := ComputeDelta(1600, 1500, 5, 10, 32)
		require.NoError(t, err)
		assert.Equal(t, -20, d1)
		assert.Equal(t, 20, d2)
	})

	t.Run("tie rejected", func(t *testing.T) {
		_, _, err := ComputeDelta(1500, 1500, 5, 5, 32)
		assert.ErrorIs(t, err, ErrTieNotAllowed)
	})

	t.Run("margin does not matter", func(t *testing.T) {
		a1, a2, err := ComputeDelta(1500, 1500, 10, 0, 32)
		require.NoError(t, err)
		b1, b2, err := ComputeDelta(1500, 1500, 10, 9, 32)
		require.NoError(t, err)
		assert.Equal(t, a1, b1)
		assert.Equal(t, a2, b2)
	})
}

func TestRatingService_ApplyMatch(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 2)
	match := recordFakeMatch(t, matchRepo, models.KindSingles, ids[:1], ids[1:], 10, 3, time.Now().UTC())

	require.NoError(t, svc.ApplyMatch(ctx, match))

	winner, err := playerRepo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	loser, err := playerRepo.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 1516, winner.Rating)
	assert.Equal(t, 1484, loser.Rating)

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	for _, mp := range stored.Players {
		require.NotNil(t, mp.RatingDelta)
		if mp.Team == 1 {
			assert.Equal(t, 16, *mp.RatingDelta)
		} else {
			assert.Equal(t, -16, *mp.RatingDelta)
		}
	}
}

func TestRatingService_ApplyMatchTwice(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 2)
	match := recordFakeMatch(t, matchRepo, models.KindSingles, ids[:1], ids[1:], 10, 3, time.Now().UTC())

	require.NoError(t, svc.ApplyMatch(ctx, match))
	err := svc.ApplyMatch(ctx, match)
	assert.ErrorIs(t, err, ErrMatchAlreadyRated)

	// Состояние не изменилось.
	winner, err := playerRepo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1516, winner.Rating)
}

func TestRatingService_TeamMatchSharesDelta(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 4)
	match := recordFakeMatch(t, matchRepo, models.KindDoubles, ids[:2], ids[2:], 10, 7, time.Now().UTC())
	require.NoError(t, svc.ApplyMatch(ctx, match))

	for _, id := range ids[:2] {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1516, p.Rating)
	}
	for _, id := range ids[2:] {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1484, p.Rating)
	}
}

// В формате 2v1 одна и та же командная дельта достаётся каждому игроку, так
// что сумма рейтингов в системе не сохраняется.
func TestRatingService_TwoVOneShiftsRatingPool(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 3)
	match := recordFakeMatch(t, matchRepo, models.KindTwoVOne, ids[:2], ids[2:], 10, 4, time.Now().UTC())
	require.NoError(t, svc.ApplyMatch(ctx, match))

	total := 0
	for _, id := range ids {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		total += p.Rating
	}
	assert.Equal(t, 3*models.BaseRating+16, total)
}

func TestRatingService_ApplyMatchRosterValidation(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 2)

	t.Run("one-sided roster", func(t *testing.T) {
		match := &models.Match{
			ID:         999,
			Team1Score: 10,
			Team2Score: 3,
			Players: []models.MatchPlayer{
				{PlayerID: ids[0], Team: 1},
			},
		}
		assert.ErrorIs(t, svc.ApplyMatch(ctx, match), ErrRosterEmpty)
	})

	t.Run("duplicate player", func(t *testing.T) {
		match := &models.Match{
			ID:         999,
			Team1Score: 10,
			Team2Score: 3,
			Players: []models.MatchPlayer{
				{PlayerID: ids[0], Team: 1},
				{PlayerID: ids[0], Team: 2},
			},
		}
		assert.ErrorIs(t, svc.ApplyMatch(ctx, match), ErrDuplicatePlayer)
	})

	t.Run("unknown player", func(t *testing.T) {
		match := &models.Match{
			ID:         999,
			Team1Score: 10,
			Team2Score: 3,
			Players: []models.MatchPlayer{
				{PlayerID: ids[0], Team: 1},
				{PlayerID: 12345, Team: 2},
			},
		}
		assert.ErrorIs(t, svc.ApplyMatch(ctx, match), ErrPlayerNotFound)
	})
}

func TestRatingService_RecalculateAll(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 3)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m1 := recordFakeMatch(t, matchRepo, models.KindSingles, ids[:1], ids[1:2], 10, 3, base)
	require.NoError(t, svc.ApplyMatch(ctx, m1))
	m2 := recordFakeMatch(t, matchRepo, models.KindSingles, ids[1:2], ids[2:3], 10, 8, base.Add(time.Hour))
	require.NoError(t, svc.ApplyMatch(ctx, m2))

	want := make(map[int]int)
	for _, id := range ids {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		want[id] = p.Rating
	}

	// Портим состояние и пересчитываем заново.
	require.NoError(t, playerRepo.UpdateRating(ctx, nil, ids[0], 9000))
	require.NoError(t, svc.RecalculateAll(ctx))

	for _, id := range ids {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want[id], p.Rating, "player %d", id)
	}

	stored, err := matchRepo.GetByID(ctx, m2.ID)
	require.NoError(t, err)
	for _, mp := range stored.Players {
		assert.NotNil(t, mp.RatingDelta)
	}
}

// Повтор пересчёта над той же историей даёт байт-в-байт те же рейтинги.
func TestRatingService_RecalculateAllDeterministic(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewRatingService(playerRepo, matchRepo, discardLogger())

	ids := mustPlayers(playerRepo, 4)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recordFakeMatch(t, matchRepo, models.KindDoubles, ids[:2], ids[2:], 10, 6, base)
	recordFakeMatch(t, matchRepo, models.KindSingles, ids[:1], ids[3:], 7, 10, base.Add(time.Hour))
	recordFakeMatch(t, matchRepo, models.KindTwoVOne, []int{ids[1], ids[2]}, ids[:1], 10, 0, base.Add(2*time.Hour))

	require.NoError(t, svc.RecalculateAll(ctx))
	first := make(map[int]int)
	for _, id := range ids {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		first[id] = p.Rating
	}

	require.NoError(t, svc.RecalculateAll(ctx))
	for _, id := range ids {
		p, err := playerRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, first[id], p.Rating)
	}
}
