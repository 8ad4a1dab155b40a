package service

import (
	"context"
	stderrors "errors"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/repository"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/redis"

	"github.com/google/uuid"
)

// VotingService settles ballots. One vote per (match, voter key) forever,
// enforced by the store's unique constraint; the configured cooldown acts as
// an attempt throttle in front of the transaction so repeat submissions
// within the window never reach the database.
type VotingService struct {
	db      repository.TxBeginner
	matches repository.MatchStore
	votes   repository.VoteStore
	cache   *redis.Client
	cfg     *config.Config
	log     *logger.Logger
}

func NewVotingService(
	db repository.TxBeginner,
	matches repository.MatchStore,
	votes repository.VoteStore,
	cache *redis.Client,
	cfg *config.Config,
	log *logger.Logger,
) *VotingService {
	return &VotingService{
		db:      db,
		matches: matches,
		votes:   votes,
		cache:   cache,
		cfg:     cfg,
		log:     log,
	}
}

// CastVote records one ballot and settles it against the match score in a
// single transaction: the vote row and the score increment land together or
// not at all. Returns the voted entrant's new score.
//
// Failure ladder, each a distinct code: MatchNotFound, MatchNotActive,
// InvalidEntrant, AlreadyVoted, Cooldown (throttle, checked first since it
// avoids the transaction entirely).
func (s *VotingService) CastVote(ctx context.Context, matchID, entrantID uuid.UUID, voterKey string) (int, error) {
	if err := s.throttle(ctx, matchID, voterKey); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Row lock serializes concurrent votes against the same match.
	match, err := s.matches.GetForUpdate(ctx, tx, matchID)
	if err != nil {
		return 0, errors.NewStoreError("Failed to lock match", err)
	}
	if match == nil {
		return 0, errors.NewNotFound(errors.CodeMatchNotFound, "Match not found")
	}
	if !match.Active || match.Finished {
		return 0, errors.NewInvalidState(errors.CodeMatchNotActive, "Match is not open for voting")
	}

	side, ok := sideOf(match, entrantID)
	if !ok {
		return 0, errors.NewInvalidInputCode(errors.CodeInvalidEntrant, "Entrant is not part of this match")
	}

	vote := &domain.Vote{
		ID:        uuid.New(),
		SeasonID:  match.SeasonID,
		MatchID:   matchID,
		EntrantID: entrantID,
		VoterKey:  voterKey,
	}
	if err := s.votes.Insert(ctx, tx, vote); err != nil {
		if stderrors.Is(err, repository.ErrDuplicateVote) {
			return 0, errors.NewConflict(errors.CodeAlreadyVoted, "This voter has already voted in this match")
		}
		return 0, errors.NewStoreError("Failed to record vote", err)
	}

	newScore, err := s.matches.AddScore(ctx, tx, matchID, side, s.cfg.ScorePerVote)
	if err != nil {
		return 0, errors.NewStoreError("Failed to settle vote", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewStoreError("Failed to commit vote", err)
	}

	s.log.WithFields(map[string]interface{}{
		"match_id":   matchID,
		"entrant_id": entrantID,
		"new_score":  newScore,
	}).Debug("Vote settled")

	// Scores move every few seconds during a live match; the read cache
	// expires on its own short TTL instead of being invalidated per vote.
	return newScore, nil
}

// throttle rejects repeat attempts from the same voter key for the same
// match inside the cooldown window. Soft check: when Redis is unavailable
// the unique constraint still guarantees correctness.
func (s *VotingService) throttle(ctx context.Context, matchID uuid.UUID, voterKey string) error {
	if s.cache == nil || s.cfg.VoteCooldown <= 0 {
		return nil
	}

	key := s.cache.KeyBuilder.KeyVoteAttempt(matchID.String(), voterKey)
	ok, err := s.cache.SetNX(ctx, key, time.Now().Unix(), s.cfg.VoteCooldown)
	if err != nil {
		s.log.WithError(err).Warn("Vote throttle unavailable, continuing without it")
		return nil
	}
	if !ok {
		return errors.NewCooldown("Please wait before voting again")
	}
	return nil
}

func sideOf(match *domain.Match, entrantID uuid.UUID) (string, bool) {
	if match.EntrantAID != nil && *match.EntrantAID == entrantID {
		return repository.SideA, true
	}
	if match.EntrantBID != nil && *match.EntrantBID == entrantID {
		return repository.SideB, true
	}
	return "", false
}
