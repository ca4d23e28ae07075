package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

// SnapshotService materializes the leaderboard as it stood at the end of a
// calendar day. Snapshots are derived purely by replaying match history, so
// they can always be rebuilt after a corrective edit.
type SnapshotService interface {
	// CreateSnapshot upserts the ranking rows for one calendar day (UTC).
	CreateSnapshot(ctx context.Context, day time.Time) error
	// RecalculateAllSnapshots rebuilds one snapshot per day from the date of
	// the first recorded match through today. Days without games carry the
	// previous standings forward.
	RecalculateAllSnapshots(ctx context.Context) error
	ListByDate(ctx context.Context, day time.Time) ([]*models.RankSnapshot, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.RankSnapshot, error)
}

type snapshotService struct {
	snapshotRepo repositories.SnapshotRepository
	playerRepo   repositories.PlayerRepository
	matchRepo    repositories.MatchRepository
	kFactor      int
	now          func() time.Time

	mu sync.Mutex
}

func NewSnapshotService(snapshotRepo repositories.SnapshotRepository, playerRepo repositories.PlayerRepository, matchRepo repositories.MatchRepository) SnapshotService {
	return &snapshotService{
		snapshotRepo: snapshotRepo,
		playerRepo:   playerRepo,
		matchRepo:    matchRepo,
		kFactor:      DefaultKFactor,
		now:          time.Now,
	}
}

// standings is the replay state: current rating and games played per player.
type standings struct {
	ratings map[int]int
	games   map[int]int
}

func (s *snapshotService) CreateSnapshot(ctx context.Context, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day = truncateToDay(day)
	cutoff := day.AddDate(0, 0, 1)
	matches, err := s.matchRepo.ListChronological(ctx, nil, &cutoff)
	if err != nil {
		return fmt.Errorf("failed to list matches up to %s: %w", day.Format("2006-01-02"), err)
	}

	state, err := s.seedStandings(ctx)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := replayMatch(state, match, s.kFactor); err != nil {
			return err
		}
	}
	return s.persistDay(ctx, day, state)
}

func (s *snapshotService) RecalculateAllSnapshots(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.matchRepo.ListChronological(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to list matches for snapshot rebuild: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}

	state, err := s.seedStandings(ctx)
	if err != nil {
		return err
	}

	today := truncateToDay(s.now().UTC())
	i := 0
	for day := truncateToDay(matches[0].StartTime.UTC()); !day.After(today); day = day.AddDate(0, 0, 1) {
		cutoff := day.AddDate(0, 0, 1)
		for i < len(matches) && matches[i].StartTime.UTC().Before(cutoff) {
			if err := replayMatch(state, matches[i], s.kFactor); err != nil {
				return err
			}
			i++
		}
		if err := s.persistDay(ctx, day, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *snapshotService) ListByDate(ctx context.Context, day time.Time) ([]*models.RankSnapshot, error) {
	return s.snapshotRepo.ListByDate(ctx, truncateToDay(day))
}

func (s *snapshotService) ListByPlayer(ctx context.Context, playerID int) ([]*models.RankSnapshot, error) {
	return s.snapshotRepo.ListByPlayer(ctx, playerID)
}

// seedStandings starts every known player at the base rating with zero games.
func (s *snapshotService) seedStandings(ctx context.Context) (*standings, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for snapshot: %w", err)
	}
	state := &standings{ratings: make(map[int]int, len(players)), games: make(map[int]int, len(players))}
	for _, p := range players {
		state.ratings[p.ID] = models.BaseRating
		state.games[p.ID] = 0
	}
	return state, nil
}

// replayMatch advances the standings by one match using the same math as the
// live rating path.
func replayMatch(state *standings, match *models.Match, kFactor int) error {
	team1, team2 := splitTeams(match.Players)
	if len(team1) == 0 || len(team2) == 0 {
		return fmt.Errorf("%w: match %d", ErrRosterEmpty, match.ID)
	}
	delta1, delta2, err := ComputeDelta(
		meanStateRating(state, team1),
		meanStateRating(state, team2),
		match.Team1Score,
		match.Team2Score,
		kFactor,
	)
	if err != nil {
		return fmt.Errorf("match %d: %w", match.ID, err)
	}
	for _, mp := range team1 {
		state.ratings[mp.PlayerID] += delta1
		state.games[mp.PlayerID]++
	}
	for _, mp := range team2 {
		state.ratings[mp.PlayerID] += delta2
		state.games[mp.PlayerID]++
	}
	return nil
}

func (s *snapshotService) persistDay(ctx context.Context, day time.Time, state *standings) error {
	// Игрок без сыгранных матчей ещё не попадает в таблицу.
	ids := make([]int, 0, len(state.ratings))
	for id := range state.ratings {
		if state.games[id] == 0 {
			continue
		}
		ids = append(ids, id)
	}
	// Ранг: по рейтингу вниз, при равенстве — по id.
	sort.Slice(ids, func(a, b int) bool {
		ra, rb := state.ratings[ids[a]], state.ratings[ids[b]]
		if ra != rb {
			return ra > rb
		}
		return ids[a] < ids[b]
	})

	for rank, id := range ids {
		snap := &models.RankSnapshot{
			PlayerID:     id,
			SnapshotDate: day,
			Rank:         rank + 1,
			Rating:       state.ratings[id],
			TotalGames:   state.games[id],
		}
		if err := s.snapshotRepo.Upsert(ctx, nil, snap); err != nil {
			return fmt.Errorf("failed to upsert snapshot for player %d on %s: %w", id, day.Format("2006-01-02"), err)
		}
	}
	return nil
}

func meanStateRating(state *standings, team []models.MatchPlayer) float64 {
	sum := 0
	for _, mp := range team {
		sum += state.ratings[mp.PlayerID]
	}
	return float64(sum) / float64(len(team))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
