package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bracket-be/internal/domain"
	"bracket-be/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const matchColumns = `
	id, season_id, match_number, round, entrant_a_id, entrant_b_id,
	current_score_a, current_score_b, final_score_a, final_score_b,
	started_at, ends_at, active, finished, winner_id, tie_break_random,
	next_match_id, created_at`

const matchViewColumns = `
	m.id, m.season_id, m.match_number, m.round,
	m.started_at, m.ends_at, m.active, m.finished, m.winner_id,
	m.tie_break_random, m.next_match_id,
	m.current_score_a, m.current_score_b, m.final_score_a, m.final_score_b,
	a.id, a.name, a.color_hex, a.conference,
	b.id, b.name, b.color_hex, b.conference`

// MatchRepository persists matches in PostgreSQL. Every mutation of a match
// row happens through a caller-owned transaction; the ForUpdate readers take
// a row lock so concurrent settlement, slot filling and activation serialize
// per match.
type MatchRepository struct {
	db *database.PostgresDB
}

func NewMatchRepository(db *database.PostgresDB) *MatchRepository {
	return &MatchRepository{db: db}
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	err := row.Scan(
		&m.ID, &m.SeasonID, &m.MatchNumber, &m.Round, &m.EntrantAID, &m.EntrantBID,
		&m.CurrentScoreA, &m.CurrentScoreB, &m.FinalScoreA, &m.FinalScoreB,
		&m.StartedAt, &m.EndsAt, &m.Active, &m.Finished, &m.WinnerID, &m.TieBreakRandom,
		&m.NextMatchID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateBatch inserts the full bracket inside the caller's transaction.
// Next-match links are generated client-side, so the rows can be written in
// one pass.
func (r *MatchRepository) CreateBatch(ctx context.Context, tx pgx.Tx, matches []domain.Match) error {
	query := `
		INSERT INTO matches (
			id, season_id, match_number, round, entrant_a_id, entrant_b_id,
			current_score_a, current_score_b, active, finished, tie_break_random,
			next_match_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for i := range matches {
		m := &matches[i]
		if _, err := tx.Exec(ctx, query,
			m.ID, m.SeasonID, m.MatchNumber, m.Round, m.EntrantAID, m.EntrantBID,
			m.CurrentScoreA, m.CurrentScoreB, m.Active, m.Finished, m.TieBreakRandom,
			m.NextMatchID,
		); err != nil {
			return fmt.Errorf("failed to create match %d: %w", m.MatchNumber, err)
		}
	}

	return nil
}

// GetByID retrieves a match without locking. Returns (nil, nil) when absent.
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// GetForUpdate retrieves a match with a row lock inside the caller's
// transaction. Returns (nil, nil) when absent.
func (r *MatchRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`

	m, err := scanMatch(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	return m, nil
}

// GetBySeasonAndNumberForUpdate locks a match addressed by its bracket
// position. Used by season start to activate match 1.
func (r *MatchRepository) GetBySeasonAndNumberForUpdate(ctx context.Context, tx pgx.Tx, seasonID uuid.UUID, matchNumber int) (*domain.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE season_id = $1 AND match_number = $2 FOR UPDATE`

	m, err := scanMatch(tx.QueryRow(ctx, query, seasonID, matchNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match %d: %w", matchNumber, err)
	}
	return m, nil
}

// GetAnyActiveForUpdate locks the currently active match, if any. The
// activation paths read through this so two concurrent activations cannot
// both see an empty result.
func (r *MatchRepository) GetAnyActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches
		WHERE active = TRUE AND finished = FALSE
		ORDER BY match_number
		LIMIT 1
		FOR UPDATE`

	m, err := scanMatch(tx.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock active match: %w", err)
	}
	return m, nil
}

// FindNextEligibleForUpdate locks the lowest-numbered match that is neither
// finished nor active and has both slots filled.
func (r *MatchRepository) FindNextEligibleForUpdate(ctx context.Context, tx pgx.Tx) (*domain.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches
		WHERE finished = FALSE AND active = FALSE
		  AND entrant_a_id IS NOT NULL AND entrant_b_id IS NOT NULL
		ORDER BY match_number
		LIMIT 1
		FOR UPDATE`

	m, err := scanMatch(tx.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find next eligible match: %w", err)
	}
	return m, nil
}

// FindDue returns active, unfinished matches whose voting window has closed.
// There should be at most one, but the scheduler sweeps all of them.
func (r *MatchRepository) FindDue(ctx context.Context, now time.Time) ([]domain.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches
		WHERE active = TRUE AND finished = FALSE AND ends_at IS NOT NULL AND ends_at <= $1
		ORDER BY match_number`

	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find due matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due match: %w", err)
		}
		matches = append(matches, *m)
	}

	return matches, rows.Err()
}

// Update writes every mutable column of a previously locked match row.
func (r *MatchRepository) Update(ctx context.Context, tx pgx.Tx, match *domain.Match) error {
	query := `
		UPDATE matches SET
			entrant_a_id = $2, entrant_b_id = $3,
			current_score_a = $4, current_score_b = $5,
			final_score_a = $6, final_score_b = $7,
			started_at = $8, ends_at = $9,
			active = $10, finished = $11,
			winner_id = $12, tie_break_random = $13
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		match.ID, match.EntrantAID, match.EntrantBID,
		match.CurrentScoreA, match.CurrentScoreB,
		match.FinalScoreA, match.FinalScoreB,
		match.StartedAt, match.EndsAt,
		match.Active, match.Finished,
		match.WinnerID, match.TieBreakRandom,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s not found", match.ID)
	}
	return nil
}

// AddScore atomically applies a signed delta to one side's running score and
// returns the new value. The relative update keeps concurrent increments
// from losing writes even without the row lock, and the lock is held anyway
// on the vote path.
func (r *MatchRepository) AddScore(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, side string, delta int) (int, error) {
	var query string
	switch side {
	case SideA:
		query = `UPDATE matches SET current_score_a = current_score_a + $2 WHERE id = $1 RETURNING current_score_a`
	case SideB:
		query = `UPDATE matches SET current_score_b = current_score_b + $2 WHERE id = $1 RETURNING current_score_b`
	default:
		return 0, fmt.Errorf("unknown match side %q", side)
	}

	var newScore int
	if err := tx.QueryRow(ctx, query, matchID, delta).Scan(&newScore); err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	return newScore, nil
}

// DeactivateOthers clears the active flag on every other match of the
// season. Defensive: the single-active invariant should already hold, but
// the activation transition enforces it explicitly.
func (r *MatchRepository) DeactivateOthers(ctx context.Context, tx pgx.Tx, seasonID, exceptID uuid.UUID) error {
	query := `UPDATE matches SET active = FALSE WHERE season_id = $1 AND id <> $2 AND active = TRUE`
	if _, err := tx.Exec(ctx, query, seasonID, exceptID); err != nil {
		return fmt.Errorf("failed to deactivate stray matches: %w", err)
	}
	return nil
}

func scanMatchView(row pgx.Row) (*domain.MatchView, error) {
	var (
		v                  domain.MatchView
		scoreA, scoreB     int
		finalA, finalB     *int
		aID, bID           *uuid.UUID
		aName, bName       *string
		aColor, bColor     *string
		aConf, bConf       *domain.Conference
	)

	err := row.Scan(
		&v.ID, &v.SeasonID, &v.MatchNumber, &v.Round,
		&v.StartedAt, &v.EndsAt, &v.Active, &v.Finished, &v.WinnerID,
		&v.TieBreakRandom, &v.NextMatchID,
		&scoreA, &scoreB, &finalA, &finalB,
		&aID, &aName, &aColor, &aConf,
		&bID, &bName, &bColor, &bConf,
	)
	if err != nil {
		return nil, err
	}

	if aID != nil {
		v.EntrantA = &domain.MatchSlot{
			ID: *aID, Name: *aName, ColorHex: *aColor, Conference: *aConf,
			CurrentScore: scoreA, FinalScore: finalA,
		}
	}
	if bID != nil {
		v.EntrantB = &domain.MatchSlot{
			ID: *bID, Name: *bName, ColorHex: *bColor, Conference: *bConf,
			CurrentScore: scoreB, FinalScore: finalB,
		}
	}

	return &v, nil
}

// ListViewsBySeason returns the season's matches joined with their entrants,
// ordered by match number. This is the bracket payload.
func (r *MatchRepository) ListViewsBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.MatchView, error) {
	query := `SELECT` + matchViewColumns + `
		FROM matches m
		LEFT JOIN entrants a ON a.id = m.entrant_a_id
		LEFT JOIN entrants b ON b.id = m.entrant_b_id
		WHERE m.season_id = $1
		ORDER BY m.match_number`

	rows, err := r.db.Pool.Query(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match views: %w", err)
	}
	defer rows.Close()

	var views []domain.MatchView
	for rows.Next() {
		v, err := scanMatchView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match view: %w", err)
		}
		views = append(views, *v)
	}

	return views, rows.Err()
}

// GetActiveView returns the single active match joined with its entrants, or
// (nil, nil) when no match is live.
func (r *MatchRepository) GetActiveView(ctx context.Context) (*domain.MatchView, error) {
	query := `SELECT` + matchViewColumns + `
		FROM matches m
		LEFT JOIN entrants a ON a.id = m.entrant_a_id
		LEFT JOIN entrants b ON b.id = m.entrant_b_id
		WHERE m.active = TRUE AND m.finished = FALSE
		ORDER BY m.match_number
		LIMIT 1`

	v, err := scanMatchView(r.db.Pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active match view: %w", err)
	}
	return v, nil
}

// GetLastFinishedView returns the most recently finished match, or
// (nil, nil) when none has finished yet.
func (r *MatchRepository) GetLastFinishedView(ctx context.Context) (*domain.MatchView, error) {
	query := `SELECT` + matchViewColumns + `
		FROM matches m
		LEFT JOIN entrants a ON a.id = m.entrant_a_id
		LEFT JOIN entrants b ON b.id = m.entrant_b_id
		WHERE m.finished = TRUE
		ORDER BY m.match_number DESC
		LIMIT 1`

	v, err := scanMatchView(r.db.Pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last finished match view: %w", err)
	}
	return v, nil
}
