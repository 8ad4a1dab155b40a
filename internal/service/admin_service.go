package service

import (
	"context"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/repository"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/redis"

	"github.com/google/uuid"
)

// AdminService applies audited out-of-band score adjustments and exposes the
// admin-only read paths over the audit trail.
type AdminService struct {
	db      repository.TxBeginner
	matches repository.MatchStore
	events  repository.AdminEventStore
	cache   *redis.Client
	cfg     *config.Config
	log     *logger.Logger
	now     func() time.Time
}

func NewAdminService(
	db repository.TxBeginner,
	matches repository.MatchStore,
	events repository.AdminEventStore,
	cache *redis.Client,
	cfg *config.Config,
	log *logger.Logger,
) *AdminService {
	return &AdminService{
		db:      db,
		matches: matches,
		events:  events,
		cache:   cache,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// ApplyEvent adjusts one entrant's live score by delta and records the
// adjustment. Adjustments are refused inside the cutoff window before the
// match deadline so a last-second correction cannot flip a result the
// audience already watched close. Returns the adjusted entrant's new score.
func (s *AdminService) ApplyEvent(ctx context.Context, matchID, entrantID uuid.UUID, delta int, reason, actorEmail string) (int, error) {
	if delta == 0 {
		return 0, errors.NewInvalidInput("Delta must be non-zero")
	}
	if reason == "" {
		return 0, errors.NewInvalidInput("Reason is required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.matches.GetForUpdate(ctx, tx, matchID)
	if err != nil {
		return 0, errors.NewStoreError("Failed to lock match", err)
	}
	if match == nil {
		return 0, errors.NewNotFound(errors.CodeMatchNotFound, "Match not found")
	}
	if !match.Active || match.Finished {
		return 0, errors.NewInvalidState(errors.CodeMatchNotActive, "Match is not active")
	}

	side, ok := sideOf(match, entrantID)
	if !ok {
		return 0, errors.NewInvalidInputCode(errors.CodeInvalidEntrant, "Entrant is not in this match")
	}

	if match.EndsAt != nil && s.now().After(match.EndsAt.Add(-s.cfg.EventCutoff)) {
		return 0, errors.NewConflict(errors.CodeWindowClosed, "Match is too close to its deadline for adjustments")
	}

	event := &domain.AdminEvent{
		ID:         uuid.New(),
		SeasonID:   match.SeasonID,
		MatchID:    match.ID,
		EntrantID:  entrantID,
		Delta:      delta,
		Reason:     reason,
		ActorEmail: actorEmail,
		CreatedAt:  s.now(),
	}
	if err := s.events.Insert(ctx, tx, event); err != nil {
		return 0, errors.NewStoreError("Failed to record adjustment", err)
	}

	newScore, err := s.matches.AddScore(ctx, tx, match.ID, side, delta)
	if err != nil {
		return 0, errors.NewStoreError("Failed to apply adjustment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewStoreError("Failed to commit adjustment", err)
	}

	s.invalidateCaches(ctx, match.SeasonID)
	s.log.WithFields(map[string]interface{}{
		"match_id":   match.ID,
		"entrant_id": entrantID,
		"delta":      delta,
		"actor":      actorEmail,
	}).Info("Admin score adjustment applied")

	return newScore, nil
}

// ListEvents returns the audit trail for one match, newest first.
func (s *AdminService) ListEvents(ctx context.Context, matchID uuid.UUID) ([]domain.AdminEvent, error) {
	events, err := s.events.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, errors.NewStoreError("Failed to list adjustments", err)
	}
	return events, nil
}

func (s *AdminService) invalidateCaches(ctx context.Context, seasonID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx,
		s.cache.KeyBuilder.KeyCurrentMatch(),
		s.cache.KeyBuilder.KeyBracket(seasonID.String()),
	)
}
