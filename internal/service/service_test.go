package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/repository"
	"bracket-be/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// fakeTx satisfies pgx.Tx for services that only Begin/Commit/Rollback. The
// store fakes ignore the tx entirely and serialize on their own mutex, which
// stands in for the row locks the real repositories take.
type fakeTx struct {
	pgx.Tx
}

func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

// memStore backs every store interface with maps. All mutations happen
// under one mutex so concurrent callers observe the same serialization the
// database would impose.
type memStore struct {
	mu       sync.Mutex
	seasons  map[uuid.UUID]*domain.Season
	entrants map[uuid.UUID]*domain.Entrant
	matches  map[uuid.UUID]*domain.Match
	votes    map[string]*domain.Vote
	events   []domain.AdminEvent
}

func newMemStore() *memStore {
	return &memStore{
		seasons:  make(map[uuid.UUID]*domain.Season),
		entrants: make(map[uuid.UUID]*domain.Entrant),
		matches:  make(map[uuid.UUID]*domain.Match),
		votes:    make(map[string]*domain.Vote),
	}
}

func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

// SeasonStore

func (s *memStore) Create(ctx context.Context, season *domain.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	season.CreatedAt = time.Now()
	cp := *season
	s.seasons[season.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	season, ok := s.seasons[id]
	if !ok {
		return nil, nil
	}
	cp := *season
	return &cp, nil
}

func (s *memStore) GetActive(ctx context.Context) (*domain.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, season := range s.seasons {
		if season.Active {
			cp := *season
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) List(ctx context.Context) ([]domain.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Season
	for _, season := range s.seasons {
		out = append(out, *season)
	}
	return out, nil
}

func (s *memStore) SetActive(ctx context.Context, tx pgx.Tx, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	season, ok := s.seasons[id]
	if !ok {
		return pgx.ErrNoRows
	}
	season.Active = active
	return nil
}

// EntrantStore

func (s *memStore) CreateBatch(ctx context.Context, tx pgx.Tx, entrants []domain.Entrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entrants {
		cp := entrants[i]
		s.entrants[cp.ID] = &cp
	}
	return nil
}

func (s *memStore) GetEntrantByID(ctx context.Context, id uuid.UUID) (*domain.Entrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entrants[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Entrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Entrant
	for _, e := range s.entrants {
		if e.SeasonID == seasonID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memStore) MarkEliminated(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entrants[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Eliminated = true
	return nil
}

// MatchStore

func (s *memStore) CreateMatches(ctx context.Context, tx pgx.Tx, matches []domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range matches {
		cp := matches[i]
		s.matches[cp.ID] = &cp
	}
	return nil
}

func (s *memStore) GetMatchByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchCopy(id), nil
}

func (s *memStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchCopy(id), nil
}

func (s *memStore) GetBySeasonAndNumberForUpdate(ctx context.Context, tx pgx.Tx, seasonID uuid.UUID, matchNumber int) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.SeasonID == seasonID && m.MatchNumber == matchNumber {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetAnyActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.Active && !m.Finished {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindNextEligibleForUpdate(ctx context.Context, tx pgx.Tx) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.Match
	for _, m := range s.matches {
		if m.Finished || m.Active || !m.BothSlotsFilled() {
			continue
		}
		if best == nil || m.MatchNumber < best.MatchNumber {
			best = m
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) FindDue(ctx context.Context, now time.Time) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Match
	for _, m := range s.matches {
		if m.Active && !m.Finished && m.EndsAt != nil && !m.EndsAt.After(now) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) Update(ctx context.Context, tx pgx.Tx, match *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[match.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *match
	s.matches[match.ID] = &cp
	return nil
}

func (s *memStore) AddScore(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, side string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if side == repository.SideA {
		m.CurrentScoreA += delta
		return m.CurrentScoreA, nil
	}
	m.CurrentScoreB += delta
	return m.CurrentScoreB, nil
}

func (s *memStore) DeactivateOthers(ctx context.Context, tx pgx.Tx, seasonID, exceptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.SeasonID == seasonID && m.ID != exceptID {
			m.Active = false
		}
	}
	return nil
}

func (s *memStore) ListViewsBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.MatchView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MatchView
	for _, m := range s.matches {
		if m.SeasonID == seasonID {
			out = append(out, s.viewOf(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out, nil
}

func (s *memStore) GetActiveView(ctx context.Context) (*domain.MatchView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.Active && !m.Finished {
			v := s.viewOf(m)
			return &v, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetLastFinishedView(ctx context.Context) (*domain.MatchView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.Match
	for _, m := range s.matches {
		if m.Finished && (best == nil || m.MatchNumber > best.MatchNumber) {
			best = m
		}
	}
	if best == nil {
		return nil, nil
	}
	v := s.viewOf(best)
	return &v, nil
}

// VoteStore

func (s *memStore) Insert(ctx context.Context, tx pgx.Tx, vote *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := vote.MatchID.String() + ":" + vote.VoterKey
	if _, exists := s.votes[key]; exists {
		return repository.ErrDuplicateVote
	}
	vote.CreatedAt = time.Now()
	cp := *vote
	s.votes[key] = &cp
	return nil
}

func (s *memStore) CountByMatchAndEntrant(ctx context.Context, matchID, entrantID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, v := range s.votes {
		if v.MatchID == matchID && v.EntrantID == entrantID {
			count++
		}
	}
	return count, nil
}

// AdminEventStore

func (s *memStore) InsertEvent(ctx context.Context, tx pgx.Tx, event *domain.AdminEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *memStore) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.AdminEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AdminEvent
	for _, e := range s.events {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) matchCopy(id uuid.UUID) *domain.Match {
	m, ok := s.matches[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func (s *memStore) viewOf(m *domain.Match) domain.MatchView {
	v := domain.MatchView{
		ID:             m.ID,
		SeasonID:       m.SeasonID,
		MatchNumber:    m.MatchNumber,
		Round:          m.Round,
		StartedAt:      m.StartedAt,
		EndsAt:         m.EndsAt,
		Active:         m.Active,
		Finished:       m.Finished,
		WinnerID:       m.WinnerID,
		TieBreakRandom: m.TieBreakRandom,
		NextMatchID:    m.NextMatchID,
	}
	v.EntrantA = s.slotOf(m.EntrantAID, m.CurrentScoreA, m.FinalScoreA)
	v.EntrantB = s.slotOf(m.EntrantBID, m.CurrentScoreB, m.FinalScoreB)
	return v
}

func (s *memStore) slotOf(id *uuid.UUID, current int, final *int) *domain.MatchSlot {
	if id == nil {
		return nil
	}
	e, ok := s.entrants[*id]
	if !ok {
		return nil
	}
	return &domain.MatchSlot{
		ID:           e.ID,
		Name:         e.Name,
		ColorHex:     e.ColorHex,
		Conference:   e.Conference,
		CurrentScore: current,
		FinalScore:   final,
	}
}

// entrantStoreAdapter and matchStoreAdapter reconcile the fake's method
// names with the store interfaces, which share method names across
// interfaces (GetByID, CreateBatch, Insert).
type entrantStoreAdapter struct{ *memStore }

func (a entrantStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entrant, error) {
	return a.GetEntrantByID(ctx, id)
}

type matchStoreAdapter struct{ *memStore }

func (a matchStoreAdapter) CreateBatch(ctx context.Context, tx pgx.Tx, matches []domain.Match) error {
	return a.CreateMatches(ctx, tx, matches)
}

func (a matchStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	return a.GetMatchByID(ctx, id)
}

type eventStoreAdapter struct{ *memStore }

func (a eventStoreAdapter) Insert(ctx context.Context, tx pgx.Tx, event *domain.AdminEvent) error {
	return a.InsertEvent(ctx, tx, event)
}

// engine bundles every service over one shared memStore.
type engine struct {
	store     *memStore
	cfg       *config.Config
	bracket   *BracketService
	voting    *VotingService
	resolver  *ResolverService
	admin     *AdminService
	scheduler *SchedulerService
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	store := newMemStore()
	cfg := &config.Config{
		StartScore:        1000,
		ScorePerVote:      1,
		MatchDuration:     72 * time.Hour,
		EventCutoff:       30 * time.Second,
		VoteCooldown:      30 * time.Second,
		SchedulerInterval: time.Minute,
	}
	log := logger.NewNop()

	entrants := entrantStoreAdapter{store}
	matches := matchStoreAdapter{store}
	events := eventStoreAdapter{store}

	resolver := NewResolverService(store, matches, entrants, nil, cfg, log)

	return &engine{
		store:     store,
		cfg:       cfg,
		bracket:   NewBracketService(store, store, entrants, matches, nil, cfg, log),
		voting:    NewVotingService(store, matches, store, nil, cfg, log),
		resolver:  resolver,
		admin:     NewAdminService(store, matches, events, nil, cfg, log),
		scheduler: NewSchedulerService(store, matches, resolver, nil, cfg, log),
	}
}

func testSeeds() []domain.EntrantSeed {
	return []domain.EntrantSeed{
		{Name: "Alpha", ColorHex: "#ff0000", Conference: domain.ConferenceLeft},
		{Name: "Bravo", ColorHex: "#00ff00", Conference: domain.ConferenceLeft},
		{Name: "Charlie", ColorHex: "#0000ff", Conference: domain.ConferenceLeft},
		{Name: "Delta", ColorHex: "#ffff00", Conference: domain.ConferenceLeft},
		{Name: "Echo", ColorHex: "#ff00ff", Conference: domain.ConferenceRight},
		{Name: "Foxtrot", ColorHex: "#00ffff", Conference: domain.ConferenceRight},
		{Name: "Golf", ColorHex: "#ffffff", Conference: domain.ConferenceRight},
		{Name: "Hotel", ColorHex: "#000000", Conference: domain.ConferenceRight},
	}
}

// seedRunningSeason creates a season, seeds its bracket and starts it, so
// match 1 is live. Returns the season ID and the matches by number.
func seedRunningSeason(t *testing.T, e *engine) (uuid.UUID, map[int]*domain.Match) {
	t.Helper()
	ctx := context.Background()

	season, err := e.bracket.CreateSeason(ctx, "Test Season")
	require.NoError(t, err)

	err = e.bracket.SeedBracket(ctx, &domain.SeedRequest{
		SeasonID: season.ID.String(),
		Entrants: testSeeds(),
	})
	require.NoError(t, err)

	require.NoError(t, e.bracket.StartSeason(ctx, season.ID))

	return season.ID, matchesByNumber(t, e, season.ID)
}

func matchesByNumber(t *testing.T, e *engine, seasonID uuid.UUID) map[int]*domain.Match {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	out := make(map[int]*domain.Match)
	for _, m := range e.store.matches {
		if m.SeasonID == seasonID {
			cp := *m
			out[cp.MatchNumber] = &cp
		}
	}
	require.Len(t, out, domain.MatchCount)
	return out
}
