package service

import (
	"context"
	"sync"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/repository"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/redis"

	"github.com/google/uuid"
)

// SchedulerService drives match lifecycle on a timer. Each tick it resolves
// every active match whose voting window has closed. It also exposes the
// manual lifecycle operations admins can trigger between rounds.
type SchedulerService struct {
	db       repository.TxBeginner
	matches  repository.MatchStore
	resolver *ResolverService
	cache    *redis.Client
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewSchedulerService(
	db repository.TxBeginner,
	matches repository.MatchStore,
	resolver *ResolverService,
	cache *redis.Client,
	cfg *config.Config,
	log *logger.Logger,
) *SchedulerService {
	return &SchedulerService{
		db:       db,
		matches:  matches,
		resolver: resolver,
		cache:    cache,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Start launches the background resolution loop. Calling Start on a running
// scheduler is a no-op.
func (s *SchedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.log.Warn("Scheduler already running")
		return
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	go s.run(ctx)
	s.log.WithField("interval", s.cfg.SchedulerInterval.String()).Info("Scheduler started")
}

// Stop signals the loop to exit and waits for the in-flight tick to finish.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()

	<-done
	s.log.Info("Scheduler stopped")
}

func (s *SchedulerService) run(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.cfg.SchedulerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolved, err := s.ResolveDueMatches(ctx)
			if err != nil {
				s.log.WithError(err).Error("Scheduled resolution pass failed")
				continue
			}
			if resolved > 0 {
				s.log.WithField("resolved", resolved).Info("Resolved due matches")
			}
		}
	}
}

// ResolveDueMatches resolves every active match whose window has closed and
// returns how many were finalized. A pass with nothing due returns (0, nil).
func (s *SchedulerService) ResolveDueMatches(ctx context.Context) (int, error) {
	due, err := s.matches.FindDue(ctx, s.now())
	if err != nil {
		return 0, errors.NewStoreError("Failed to find due matches", err)
	}

	resolved := 0
	for _, match := range due {
		outcome, err := s.resolver.ResolveMatch(ctx, match.ID)
		if err != nil {
			// Another resolver may have finished it between FindDue and the
			// row lock; anything else is worth surfacing.
			s.log.WithError(err).WithField("match_id", match.ID).Error("Failed to resolve due match")
			continue
		}
		if !outcome.Replayed {
			resolved++
		}
	}
	return resolved, nil
}

// StartNextMatch activates the lowest-numbered unstarted match that has both
// slots filled. It refuses while any match is still active.
func (s *SchedulerService) StartNextMatch(ctx context.Context) (*domain.Match, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	active, err := s.matches.GetAnyActiveForUpdate(ctx, tx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to check for active match", err)
	}
	if active != nil {
		return nil, errors.NewConflict(errors.CodeActiveMatchExists, "A match is already active")
	}

	next, err := s.matches.FindNextEligibleForUpdate(ctx, tx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to find next match", err)
	}
	if next == nil {
		return nil, errors.NewInvalidState(errors.CodeNoEligibleMatch, "No match is ready to start")
	}

	startedAt := s.now()
	endsAt := startedAt.Add(s.cfg.MatchDuration)
	next.StartedAt = &startedAt
	next.EndsAt = &endsAt
	next.Active = true
	next.CurrentScoreA = s.cfg.StartScore
	next.CurrentScoreB = s.cfg.StartScore

	if err := s.matches.Update(ctx, tx, next); err != nil {
		return nil, errors.NewStoreError("Failed to activate match", err)
	}
	if err := s.matches.DeactivateOthers(ctx, tx, next.SeasonID, next.ID); err != nil {
		return nil, errors.NewStoreError("Failed to enforce single active match", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.NewStoreError("Failed to commit activation", err)
	}

	s.invalidateCaches(ctx, next.SeasonID)
	s.log.WithFields(map[string]interface{}{
		"match_id":     next.ID,
		"match_number": next.MatchNumber,
		"ends_at":      endsAt,
	}).Info("Match started")

	return next, nil
}

// ShortenActiveMatch rewrites the active match's deadline to a few seconds
// from now so the next tick resolves it. Development environments only; the
// handler layer enforces the gate.
func (s *SchedulerService) ShortenActiveMatch(ctx context.Context, in time.Duration) (*domain.Match, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.matches.GetAnyActiveForUpdate(ctx, tx)
	if err != nil {
		return nil, errors.NewStoreError("Failed to find active match", err)
	}
	if match == nil {
		return nil, errors.NewNotFound(errors.CodeMatchNotFound, "No active match")
	}

	endsAt := s.now().Add(in)
	match.EndsAt = &endsAt

	if err := s.matches.Update(ctx, tx, match); err != nil {
		return nil, errors.NewStoreError("Failed to shorten match", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.NewStoreError("Failed to commit deadline change", err)
	}

	s.invalidateCaches(ctx, match.SeasonID)
	return match, nil
}

func (s *SchedulerService) invalidateCaches(ctx context.Context, seasonID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx,
		s.cache.KeyBuilder.KeyCurrentMatch(),
		s.cache.KeyBuilder.KeyBracket(seasonID.String()),
		s.cache.KeyBuilder.KeyLastFinished(),
	)
}
