package repository

import (
	"context"
	"errors"
	"fmt"

	"bracket-be/internal/domain"
	"bracket-be/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// VoteRepository persists ballots in PostgreSQL. The table is append-only.
type VoteRepository struct {
	db *database.PostgresDB
}

func NewVoteRepository(db *database.PostgresDB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Insert writes one ballot inside the caller's transaction. A duplicate
// (match_id, voter_key) surfaces as ErrDuplicateVote; the unique index makes
// this race-free under concurrent submissions.
func (r *VoteRepository) Insert(ctx context.Context, tx pgx.Tx, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (id, season_id, match_id, entrant_id, voter_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		vote.ID, vote.SeasonID, vote.MatchID, vote.EntrantID, vote.VoterKey,
	).Scan(&vote.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	return nil
}

// CountByMatchAndEntrant returns accepted ballots for one entrant in one
// match. Used by the admin audit view, not by the vote path.
func (r *VoteRepository) CountByMatchAndEntrant(ctx context.Context, matchID, entrantID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM votes WHERE match_id = $1 AND entrant_id = $2`

	if err := r.db.Pool.QueryRow(ctx, query, matchID, entrantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}
