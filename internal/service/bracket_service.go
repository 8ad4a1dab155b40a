package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/repository"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/redis"

	"github.com/google/uuid"
)

// BracketService owns season lifecycle, bracket construction and the public
// read paths.
type BracketService struct {
	db       repository.TxBeginner
	seasons  repository.SeasonStore
	entrants repository.EntrantStore
	matches  repository.MatchStore
	cache    *redis.Client
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
}

func NewBracketService(
	db repository.TxBeginner,
	seasons repository.SeasonStore,
	entrants repository.EntrantStore,
	matches repository.MatchStore,
	cache *redis.Client,
	cfg *config.Config,
	log *logger.Logger,
) *BracketService {
	return &BracketService{
		db:       db,
		seasons:  seasons,
		entrants: entrants,
		matches:  matches,
		cache:    cache,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// CreateSeason creates an inactive season.
func (s *BracketService) CreateSeason(ctx context.Context, name string) (*domain.Season, error) {
	if name == "" {
		return nil, errors.NewInvalidInput("Season name is required")
	}

	season := &domain.Season{
		ID:        uuid.New(),
		Name:      name,
		Active:    false,
		StartDate: s.now(),
	}
	if err := s.seasons.Create(ctx, season); err != nil {
		return nil, errors.NewStoreError("Failed to create season", err)
	}

	s.log.WithField("season_id", season.ID).Info("Season created")
	return season, nil
}

// GetActiveSeason returns the running season, or nil when none is active.
func (s *BracketService) GetActiveSeason(ctx context.Context) (*domain.Season, error) {
	season, err := s.seasons.GetActive(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to get active season", err)
	}
	return season, nil
}

// ListSeasons returns all seasons, newest first.
func (s *BracketService) ListSeasons(ctx context.Context) ([]domain.Season, error) {
	seasons, err := s.seasons.List(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to list seasons", err)
	}
	return seasons, nil
}

// SeedBracket creates a season's 8 entrants and 7 matches with the fixed
// topology: quarterfinals 1-2 from the left conference, 3-4 from the right,
// matches 1-2 feeding semifinal 5, 3-4 feeding 6, 5-6 feeding the final 7.
// Round 1 is fully slotted; later rounds wait for feeder winners. Callers
// must seed a season at most once; re-running creates a duplicate bracket.
func (s *BracketService) SeedBracket(ctx context.Context, req *domain.SeedRequest) error {
	seasonID, err := uuid.Parse(req.SeasonID)
	if err != nil {
		return errors.NewInvalidInput("Invalid season ID")
	}
	if err := validateSeeds(req.Entrants); err != nil {
		return err
	}

	season, err := s.seasons.GetByID(ctx, seasonID)
	if err != nil {
		return errors.NewStoreError("Failed to load season", err)
	}
	if season == nil {
		return errors.NewNotFound(errors.CodeSeasonNotFound, "Season not found")
	}

	entrants := make([]domain.Entrant, 0, domain.EntrantCount)
	var left, right []uuid.UUID
	for _, seed := range req.Entrants {
		e := domain.Entrant{
			ID:         uuid.New(),
			SeasonID:   seasonID,
			Name:       seed.Name,
			ColorHex:   seed.ColorHex,
			Conference: seed.Conference,
		}
		entrants = append(entrants, e)
		if seed.Conference == domain.ConferenceLeft {
			left = append(left, e.ID)
		} else {
			right = append(right, e.ID)
		}
	}

	matches := s.buildBracket(seasonID, left, right)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.entrants.CreateBatch(ctx, tx, entrants); err != nil {
		return errors.NewStoreError("Failed to create entrants", err)
	}
	if err := s.matches.CreateBatch(ctx, tx, matches); err != nil {
		return errors.NewStoreError("Failed to create matches", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.NewStoreError("Failed to commit bracket", err)
	}

	s.invalidateCaches(ctx, seasonID)
	s.log.WithField("season_id", seasonID).Info("Bracket seeded")
	return nil
}

// buildBracket lays out the 7 matches and wires the winner-progression
// links. IDs are generated here so the links are known before insert.
func (s *BracketService) buildBracket(seasonID uuid.UUID, left, right []uuid.UUID) []domain.Match {
	ids := make([]uuid.UUID, domain.MatchCount+1) // 1-indexed by match number
	for n := 1; n <= domain.MatchCount; n++ {
		ids[n] = uuid.New()
	}

	// next-match links: {1,2}->5, {3,4}->6, {5,6}->7, final has none
	next := map[int]int{1: 5, 2: 5, 3: 6, 4: 6, 5: 7, 6: 7}

	slots := map[int][2]uuid.UUID{
		1: {left[0], left[1]},
		2: {left[2], left[3]},
		3: {right[0], right[1]},
		4: {right[2], right[3]},
	}

	matches := make([]domain.Match, 0, domain.MatchCount)
	for n := 1; n <= domain.MatchCount; n++ {
		m := domain.Match{
			ID:            ids[n],
			SeasonID:      seasonID,
			MatchNumber:   n,
			Round:         domain.RoundForMatchNumber(n),
			CurrentScoreA: s.cfg.StartScore,
			CurrentScoreB: s.cfg.StartScore,
		}
		if nn, ok := next[n]; ok {
			id := ids[nn]
			m.NextMatchID = &id
		}
		if pair, ok := slots[n]; ok {
			a, b := pair[0], pair[1]
			m.EntrantAID = &a
			m.EntrantBID = &b
		}
		matches = append(matches, m)
	}

	return matches
}

func validateSeeds(seeds []domain.EntrantSeed) error {
	if len(seeds) != domain.EntrantCount {
		return errors.NewInvalidInput(fmt.Sprintf("Exactly %d entrants are required", domain.EntrantCount))
	}

	counts := map[domain.Conference]int{}
	for _, seed := range seeds {
		if seed.Name == "" {
			return errors.NewInvalidInput("Entrant name is required")
		}
		if !seed.Conference.IsValid() {
			return errors.NewInvalidInput(fmt.Sprintf("Unknown conference %q", seed.Conference))
		}
		counts[seed.Conference]++
	}
	if counts[domain.ConferenceLeft] != domain.EntrantsPerConf || counts[domain.ConferenceRight] != domain.EntrantsPerConf {
		return errors.NewInvalidInput(fmt.Sprintf("Exactly %d entrants per conference are required", domain.EntrantsPerConf))
	}

	return nil
}

// StartSeason marks the season active and activates match 1 for the
// configured duration. Requires match 1 to be fully slotted.
func (s *BracketService) StartSeason(ctx context.Context, seasonID uuid.UUID) error {
	season, err := s.seasons.GetByID(ctx, seasonID)
	if err != nil {
		return errors.NewStoreError("Failed to load season", err)
	}
	if season == nil {
		return errors.NewNotFound(errors.CodeSeasonNotFound, "Season not found")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.matches.GetBySeasonAndNumberForUpdate(ctx, tx, seasonID, 1)
	if err != nil {
		return errors.NewStoreError("Failed to lock opening match", err)
	}
	if match == nil {
		return errors.NewNotFound(errors.CodeMatchNotFound, "Opening match not found; seed the bracket first")
	}
	if match.Finished {
		return errors.NewInvalidState(errors.CodeMatchNotReady, "Opening match is already finished")
	}
	if !match.BothSlotsFilled() {
		return errors.NewInvalidState(errors.CodeMatchNotReady, "Opening match is not fully slotted")
	}

	if err := s.seasons.SetActive(ctx, tx, seasonID, true); err != nil {
		return errors.NewStoreError("Failed to activate season", err)
	}

	if !match.Active {
		startedAt := s.now()
		endsAt := startedAt.Add(s.cfg.MatchDuration)
		match.StartedAt = &startedAt
		match.EndsAt = &endsAt
		match.Active = true
		match.CurrentScoreA = s.cfg.StartScore
		match.CurrentScoreB = s.cfg.StartScore

		if err := s.matches.Update(ctx, tx, match); err != nil {
			return errors.NewStoreError("Failed to activate opening match", err)
		}
		if err := s.matches.DeactivateOthers(ctx, tx, seasonID, match.ID); err != nil {
			return errors.NewStoreError("Failed to enforce single active match", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStoreError("Failed to commit season start", err)
	}

	s.invalidateCaches(ctx, seasonID)
	s.log.WithFields(map[string]interface{}{
		"season_id": seasonID,
		"match_id":  match.ID,
	}).Info("Season started")
	return nil
}

// GetActiveMatch returns the live match with entrants, or nil when no match
// is active. "No active match" is a normal empty result, not an error.
func (s *BracketService) GetActiveMatch(ctx context.Context) (*domain.MatchView, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyCurrentMatch()); err == nil {
			var view domain.MatchView
			if json.Unmarshal([]byte(cached), &view) == nil {
				return &view, nil
			}
		}
	}

	view, err := s.matches.GetActiveView(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to load active match", err)
	}
	if view == nil {
		return nil, nil
	}

	if s.cache != nil {
		if payload, err := json.Marshal(view); err == nil {
			_ = s.cache.Set(ctx, s.cache.KeyBuilder.KeyCurrentMatch(), payload, redis.TTLCurrentMatch)
		}
	}

	return view, nil
}

// GetBracket returns the season's matches with entrants, ordered by match
// number.
func (s *BracketService) GetBracket(ctx context.Context, seasonID uuid.UUID) ([]domain.MatchView, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyBracket(seasonID.String())); err == nil {
			var views []domain.MatchView
			if json.Unmarshal([]byte(cached), &views) == nil {
				return views, nil
			}
		}
	}

	views, err := s.matches.ListViewsBySeason(ctx, seasonID)
	if err != nil {
		return nil, errors.NewStoreError("Failed to load bracket", err)
	}

	if s.cache != nil && len(views) > 0 {
		if payload, err := json.Marshal(views); err == nil {
			_ = s.cache.Set(ctx, s.cache.KeyBuilder.KeyBracket(seasonID.String()), payload, redis.TTLBracket)
		}
	}

	return views, nil
}

// GetLastFinishedMatch returns the most recently finished match, or nil.
func (s *BracketService) GetLastFinishedMatch(ctx context.Context) (*domain.MatchView, error) {
	view, err := s.matches.GetLastFinishedView(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to load last finished match", err)
	}
	return view, nil
}

func (s *BracketService) invalidateCaches(ctx context.Context, seasonID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx,
		s.cache.KeyBuilder.KeyCurrentMatch(),
		s.cache.KeyBuilder.KeyBracket(seasonID.String()),
		s.cache.KeyBuilder.KeyLastFinished(),
	)
}
