package service

import (
	"context"
	"crypto/rand"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/repository"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/redis"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResolverService finalizes matches: it decides the winner, eliminates the
// loser and advances the winner into the next bracket slot. Resolution is
// idempotent; replaying a finished match returns its recorded outcome.
type ResolverService struct {
	db       repository.TxBeginner
	matches  repository.MatchStore
	entrants repository.EntrantStore
	cache    *redis.Client
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
	coin     func() bool
}

func NewResolverService(
	db repository.TxBeginner,
	matches repository.MatchStore,
	entrants repository.EntrantStore,
	cache *redis.Client,
	cfg *config.Config,
	log *logger.Logger,
) *ResolverService {
	return &ResolverService{
		db:       db,
		matches:  matches,
		entrants: entrants,
		cache:    cache,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		coin:     secureCoin,
	}
}

// secureCoin flips an unbiased coin from crypto/rand. Tie-breaking must not
// be predictable, so the default source is the CSPRNG.
func secureCoin() bool {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; falling back to
		// the clock's low bit keeps resolution from wedging if it does.
		return time.Now().UnixNano()&1 == 1
	}
	return b[0]&1 == 1
}

// ResolveMatch finalizes one match. Safe to call concurrently and
// repeatedly: the row lock serializes resolvers, and a match found already
// finished returns its recorded outcome without further mutation.
func (s *ResolverService) ResolveMatch(ctx context.Context, matchID uuid.UUID) (*domain.ResolveOutcome, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.matches.GetForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, errors.NewStoreError("Failed to lock match", err)
	}
	if match == nil {
		return nil, errors.NewNotFound(errors.CodeMatchNotFound, "Match not found")
	}

	if match.Finished {
		return recordedOutcome(match), nil
	}
	if !match.Active {
		return nil, errors.NewInvalidState(errors.CodeMatchNotActive, "Match is not active")
	}
	if !match.BothSlotsFilled() {
		return nil, errors.NewInvalidState(errors.CodeMatchNotReady, "Match is missing an entrant")
	}

	winnerID, tieBreak := s.decideWinner(match)
	loserID := *match.OpponentOf(winnerID)

	finalA, finalB := match.CurrentScoreA, match.CurrentScoreB
	match.Finished = true
	match.Active = false
	match.FinalScoreA = &finalA
	match.FinalScoreB = &finalB
	match.WinnerID = &winnerID
	match.TieBreakRandom = tieBreak

	if err := s.matches.Update(ctx, tx, match); err != nil {
		return nil, errors.NewStoreError("Failed to finish match", err)
	}
	if err := s.entrants.MarkEliminated(ctx, tx, loserID); err != nil {
		return nil, errors.NewStoreError("Failed to eliminate loser", err)
	}

	outcome := &domain.ResolveOutcome{
		MatchID:        match.ID,
		WinnerID:       winnerID,
		LoserID:        loserID,
		FinalScoreA:    finalA,
		FinalScoreB:    finalB,
		TieBreakRandom: tieBreak,
		NextMatchID:    match.NextMatchID,
	}

	if match.NextMatchID == nil {
		outcome.TournamentComplete = true
	} else {
		activated, err := s.advanceWinner(ctx, tx, match, winnerID)
		if err != nil {
			return nil, err
		}
		outcome.NextMatchActivated = activated
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.NewStoreError("Failed to commit resolution", err)
	}

	s.invalidateCaches(ctx, match.SeasonID)
	s.log.WithFields(map[string]interface{}{
		"match_id":        match.ID,
		"match_number":    match.MatchNumber,
		"winner_id":       winnerID,
		"tie_break":       tieBreak,
		"next_activated":  outcome.NextMatchActivated,
		"tournament_done": outcome.TournamentComplete,
	}).Info("Match resolved")

	return outcome, nil
}

func (s *ResolverService) decideWinner(match *domain.Match) (uuid.UUID, bool) {
	switch {
	case match.CurrentScoreA > match.CurrentScoreB:
		return *match.EntrantAID, false
	case match.CurrentScoreB > match.CurrentScoreA:
		return *match.EntrantBID, false
	default:
		if s.coin() {
			return *match.EntrantAID, true
		}
		return *match.EntrantBID, true
	}
}

// advanceWinner fills the winner into the next match's open slot under the
// next match's row lock. The second feeder to arrive sees the first's slot
// fill and performs the activation exactly once.
func (s *ResolverService) advanceWinner(ctx context.Context, tx pgx.Tx, match *domain.Match, winnerID uuid.UUID) (bool, error) {
	next, err := s.matches.GetForUpdate(ctx, tx, *match.NextMatchID)
	if err != nil {
		return false, errors.NewStoreError("Failed to lock next match", err)
	}
	if next == nil {
		return false, errors.NewStoreError("Next match row is missing", nil)
	}

	switch {
	case next.EntrantAID == nil:
		next.EntrantAID = &winnerID
	case next.EntrantBID == nil:
		next.EntrantBID = &winnerID
	}

	activated := false
	if next.BothSlotsFilled() && !next.Finished && !next.Active {
		startedAt := s.now()
		endsAt := startedAt.Add(s.cfg.MatchDuration)
		next.StartedAt = &startedAt
		next.EndsAt = &endsAt
		next.Active = true
		next.CurrentScoreA = s.cfg.StartScore
		next.CurrentScoreB = s.cfg.StartScore
		activated = true
	}

	if err := s.matches.Update(ctx, tx, next); err != nil {
		return false, errors.NewStoreError("Failed to advance winner", err)
	}

	if activated {
		if err := s.matches.DeactivateOthers(ctx, tx, next.SeasonID, next.ID); err != nil {
			return false, errors.NewStoreError("Failed to enforce single active match", err)
		}
	}

	return activated, nil
}

func recordedOutcome(match *domain.Match) *domain.ResolveOutcome {
	outcome := &domain.ResolveOutcome{
		MatchID:        match.ID,
		WinnerID:       *match.WinnerID,
		TieBreakRandom: match.TieBreakRandom,
		NextMatchID:    match.NextMatchID,
		Replayed:       true,
	}
	if loser := match.OpponentOf(*match.WinnerID); loser != nil {
		outcome.LoserID = *loser
	}
	if match.FinalScoreA != nil {
		outcome.FinalScoreA = *match.FinalScoreA
	}
	if match.FinalScoreB != nil {
		outcome.FinalScoreB = *match.FinalScoreB
	}
	outcome.TournamentComplete = match.NextMatchID == nil
	return outcome
}

func (s *ResolverService) invalidateCaches(ctx context.Context, seasonID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx,
		s.cache.KeyBuilder.KeyCurrentMatch(),
		s.cache.KeyBuilder.KeyBracket(seasonID.String()),
		s.cache.KeyBuilder.KeyLastFinished(),
	)
}
