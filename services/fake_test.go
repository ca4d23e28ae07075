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

// In-memory репозитории для тестов сервисов. Повторяют контракт
// постгресовых реализаций, включая ошибки и порядок сортировки.

type fakePlayerRepo struct {
	mu      sync.Mutex
	nextID  int
	players map[int]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[int]*models.Player)}
}

func (f *fakePlayerRepo) add(name string) *models.Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &models.Player{
		ID:        f.nextID,
		Name:      name,
		Rating:    models.BaseRating,
		CreatedAt: time.Now().UTC(),
	}
	f.players[p.ID] = p
	return copyPlayer(p)
}

func copyPlayer(p *models.Player) *models.Player {
	cp := *p
	return &cp
}

func (f *fakePlayerRepo) Create(_ context.Context, player *models.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.players {
		if existing.Name == player.Name {
			return repositories.ErrPlayerNameConflict
		}
	}
	f.nextID++
	player.ID = f.nextID
	player.CreatedAt = time.Now().UTC()
	f.players[player.ID] = copyPlayer(player)
	return nil
}

func (f *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return copyPlayer(p), nil
}

func (f *fakePlayerRepo) GetByIDs(_ context.Context, ids []int) ([]*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Player
	for _, id := range ids {
		if p, ok := f.players[id]; ok {
			out = append(out, copyPlayer(p))
		}
	}
	return out, nil
}

func (f *fakePlayerRepo) List(_ context.Context) ([]*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Player, 0, len(f.players))
	for _, p := range f.players {
		out = append(out, copyPlayer(p))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Rating != out[b].Rating {
			return out[a].Rating > out[b].Rating
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (f *fakePlayerRepo) UpdateName(_ context.Context, id int, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Name = name
	return nil
}

func (f *fakePlayerRepo) UpdateRating(_ context.Context, _ repositories.SQLExecutor, id int, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Rating = rating
	return nil
}

func (f *fakePlayerRepo) ResetAllRatings(_ context.Context, _ repositories.SQLExecutor, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		p.Rating = rating
	}
	return nil
}

func (f *fakePlayerRepo) UpdateAvatarKey(_ context.Context, id int, avatarKey *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.AvatarKey = avatarKey
	return nil
}

type fakeMatchRepo struct {
	mu           sync.Mutex
	nextID       int
	nextPlayerID int
	matches      map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func copyMatch(m *models.Match) *models.Match {
	cp := *m
	cp.Players = append([]models.MatchPlayer(nil), m.Players...)
	for i := range cp.Players {
		if m.Players[i].RatingDelta != nil {
			d := *m.Players[i].RatingDelta
			cp.Players[i].RatingDelta = &d
		}
	}
	return &cp
}

func (f *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	match.ID = f.nextID
	match.CreatedAt = time.Now().UTC()
	for i := range match.Players {
		f.nextPlayerID++
		match.Players[i].ID = f.nextPlayerID
		match.Players[i].MatchID = match.ID
	}
	f.matches[match.ID] = copyMatch(match)
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (f *fakeMatchRepo) ListChronological(_ context.Context, from, to *time.Time) ([]*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Match
	for _, m := range f.matches {
		if from != nil && m.StartTime.Before(*from) {
			continue
		}
		if to != nil && !m.StartTime.Before(*to) {
			continue
		}
		out = append(out, copyMatch(m))
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].StartTime.Equal(out[b].StartTime) {
			return out[a].StartTime.Before(out[b].StartTime)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (f *fakeMatchRepo) Update(_ context.Context, id int, upd repositories.MatchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if upd.Team1Score != nil {
		m.Team1Score = *upd.Team1Score
	}
	if upd.Team2Score != nil {
		m.Team2Score = *upd.Team2Score
	}
	if upd.StartTime != nil {
		m.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		m.EndTime = upd.EndTime
	}
	winning := 1
	if m.Team2Score > m.Team1Score {
		winning = 2
	}
	for i := range m.Players {
		m.Players[i].IsWinner = m.Players[i].Team == winning
	}
	return nil
}

func (f *fakeMatchRepo) ReplacePlayers(_ context.Context, _ repositories.SQLExecutor, matchID int, players []models.MatchPlayer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Players = append([]models.MatchPlayer(nil), players...)
	for i := range m.Players {
		f.nextPlayerID++
		m.Players[i].ID = f.nextPlayerID
		m.Players[i].MatchID = matchID
	}
	return nil
}

func (f *fakeMatchRepo) SetRatingDelta(_ context.Context, _ repositories.SQLExecutor, matchID, playerID, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	for i := range m.Players {
		if m.Players[i].PlayerID == playerID {
			d := delta
			m.Players[i].RatingDelta = &d
			return nil
		}
	}
	return repositories.ErrMatchPlayerNotFound
}

func (f *fakeMatchRepo) ClearRatingDeltas(_ context.Context, _ repositories.SQLExecutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		for i := range m.Players {
			m.Players[i].RatingDelta = nil
		}
	}
	return nil
}

func (f *fakeMatchRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(f.matches, id)
	return nil
}

type fakeDebtRepo struct {
	mu     sync.Mutex
	nextID int
	debts  map[int]*models.Debt
}

func newFakeDebtRepo() *fakeDebtRepo {
	return &fakeDebtRepo{debts: make(map[int]*models.Debt)}
}

func (f *fakeDebtRepo) Increment(_ context.Context, _ repositories.SQLExecutor, debtorID, creditorID, by int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.debts {
		if d.DebtorID == debtorID && d.CreditorID == creditorID {
			d.Outstanding += by
			return nil
		}
	}
	f.nextID++
	f.debts[f.nextID] = &models.Debt{
		ID:          f.nextID,
		DebtorID:    debtorID,
		CreditorID:  creditorID,
		Outstanding: by,
	}
	return nil
}

func (f *fakeDebtRepo) GetByPair(_ context.Context, debtorID, creditorID int) (*models.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.debts {
		if d.DebtorID == debtorID && d.CreditorID == creditorID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repositories.ErrDebtNotFound
}

func (f *fakeDebtRepo) UpdateOutstanding(_ context.Context, _ repositories.SQLExecutor, id, outstanding int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.debts[id]
	if !ok {
		return repositories.ErrDebtNotFound
	}
	d.Outstanding = outstanding
	return nil
}

func (f *fakeDebtRepo) ListByPlayer(_ context.Context, playerID int) ([]*models.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Debt
	for _, d := range f.debts {
		if d.DebtorID == playerID || d.CreditorID == playerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeDebtRepo) ListAll(_ context.Context) ([]*models.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Debt
	for _, d := range f.debts {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeDebtRepo) DeleteAll(_ context.Context, _ repositories.SQLExecutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debts = make(map[int]*models.Debt)
	return nil
}

type snapshotKey struct {
	playerID int
	date     string
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	nextID    int
	snapshots map[snapshotKey]*models.RankSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[snapshotKey]*models.RankSnapshot)}
}

func (f *fakeSnapshotRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, snapshot *models.RankSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := snapshotKey{playerID: snapshot.PlayerID, date: snapshot.SnapshotDate.Format("2006-01-02")}
	if existing, ok := f.snapshots[key]; ok {
		existing.Rank = snapshot.Rank
		existing.Rating = snapshot.Rating
		existing.TotalGames = snapshot.TotalGames
		snapshot.ID = existing.ID
		return nil
	}
	f.nextID++
	snapshot.ID = f.nextID
	cp := *snapshot
	f.snapshots[key] = &cp
	return nil
}

func (f *fakeSnapshotRepo) ListByDate(_ context.Context, date time.Time) ([]*models.RankSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := date.Format("2006-01-02")
	var out []*models.RankSnapshot
	for key, s := range f.snapshots {
		if key.date == day {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Rank < out[b].Rank })
	return out, nil
}

func (f *fakeSnapshotRepo) ListByPlayer(_ context.Context, playerID int) ([]*models.RankSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RankSnapshot
	for key, s := range f.snapshots {
		if key.playerID == playerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].SnapshotDate.Before(out[b].SnapshotDate) })
	return out, nil
}

func (f *fakeSnapshotRepo) DeleteAll(_ context.Context, _ repositories.SQLExecutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = make(map[snapshotKey]*models.RankSnapshot)
	return nil
}

type fakeTournamentRepo struct {
	mu                sync.Mutex
	nextID            int
	nextParticipantID int
	tournaments       map[int]*models.Tournament
	participants      map[int][]*models.TournamentParticipant
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{
		tournaments:  make(map[int]*models.Tournament),
		participants: make(map[int][]*models.TournamentParticipant),
	}
}

func (f *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.tournaments[t.ID] = &cp
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTournamentRepo) List(_ context.Context) ([]*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tournament
	for _, t := range f.tournaments {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	switch status {
	case models.StatusActive:
		t.StartedAt = &at
	case models.StatusCompleted:
		t.CompletedAt = &at
	}
	return nil
}

func (f *fakeTournamentRepo) UpdateWinner(_ context.Context, _ repositories.SQLExecutor, id int, winnerID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerID = winnerID
	return nil
}

func (f *fakeTournamentRepo) AddParticipant(_ context.Context, _ repositories.SQLExecutor, p *models.TournamentParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.participants[p.TournamentID] {
		if existing.Seed == p.Seed {
			return repositories.ErrTournamentSeedConflict
		}
		if existing.PlayerID == p.PlayerID {
			return repositories.ErrTournamentPlayerConflict
		}
	}
	f.nextParticipantID++
	p.ID = f.nextParticipantID
	cp := *p
	f.participants[p.TournamentID] = append(f.participants[p.TournamentID], &cp)
	return nil
}

func (f *fakeTournamentRepo) ListParticipants(_ context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TournamentParticipant
	for _, p := range f.participants[tournamentID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Seed < out[b].Seed })
	return out, nil
}

func (f *fakeTournamentRepo) MarkEliminated(_ context.Context, _ repositories.SQLExecutor, tournamentID, playerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants[tournamentID] {
		if p.PlayerID == playerID {
			p.Eliminated = true
			return nil
		}
	}
	return repositories.ErrTournamentParticipantNotFound
}

type bracketCellKey struct {
	tournamentID, round, slot int
}

type fakeBracketRepo struct {
	mu     sync.Mutex
	nextID int
	cells  map[bracketCellKey]*models.BracketMatch
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{cells: make(map[bracketCellKey]*models.BracketMatch)}
}

func copyBracketMatch(bm *models.BracketMatch) *models.BracketMatch {
	cp := *bm
	cp.Player1ID = copyIntPtr(bm.Player1ID)
	cp.Player2ID = copyIntPtr(bm.Player2ID)
	cp.WinnerID = copyIntPtr(bm.WinnerID)
	cp.MatchID = copyIntPtr(bm.MatchID)
	return &cp
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func (f *fakeBracketRepo) Create(_ context.Context, _ repositories.SQLExecutor, bm *models.BracketMatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := bracketCellKey{bm.TournamentID, bm.Round, bm.Slot}
	if _, ok := f.cells[key]; ok {
		return repositories.ErrBracketSlotConflict
	}
	f.nextID++
	bm.ID = f.nextID
	f.cells[key] = copyBracketMatch(bm)
	return nil
}

func (f *fakeBracketRepo) GetByID(_ context.Context, id int) (*models.BracketMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bm := range f.cells {
		if bm.ID == id {
			return copyBracketMatch(bm), nil
		}
	}
	return nil, repositories.ErrBracketMatchNotFound
}

func (f *fakeBracketRepo) GetByRoundSlot(_ context.Context, tournamentID, round, slot int) (*models.BracketMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bm, ok := f.cells[bracketCellKey{tournamentID, round, slot}]
	if !ok {
		return nil, repositories.ErrBracketMatchNotFound
	}
	return copyBracketMatch(bm), nil
}

func (f *fakeBracketRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.BracketMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BracketMatch
	for key, bm := range f.cells {
		if key.tournamentID == tournamentID {
			out = append(out, copyBracketMatch(bm))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Round != out[b].Round {
			return out[a].Round < out[b].Round
		}
		return out[a].Slot < out[b].Slot
	})
	return out, nil
}

func (f *fakeBracketRepo) Update(_ context.Context, _ repositories.SQLExecutor, bm *models.BracketMatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := bracketCellKey{bm.TournamentID, bm.Round, bm.Slot}
	existing, ok := f.cells[key]
	if !ok {
		return repositories.ErrBracketMatchNotFound
	}
	existing.Player1ID = copyIntPtr(bm.Player1ID)
	existing.Player2ID = copyIntPtr(bm.Player2ID)
	existing.WinnerID = copyIntPtr(bm.WinnerID)
	existing.MatchID = copyIntPtr(bm.MatchID)
	return nil
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	nextID int
	audits []*models.MatchAudit
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Create(_ context.Context, audit *models.MatchAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	audit.ID = f.nextID
	audit.EditedAt = time.Now().UTC()
	cp := *audit
	f.audits = append(f.audits, &cp)
	return nil
}

func (f *fakeAuditRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MatchAudit
	for _, a := range f.audits {
		if a.MatchID == matchID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mustPlayers seeds n players named Player 1..n and returns their ids.
func mustPlayers(repo *fakePlayerRepo, n int) []int {
	ids := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		p := repo.add(fmt.Sprintf("Player %d", i))
		ids = append(ids, p.ID)
	}
	return ids
}
