package repository

import (
	"context"
	"fmt"

	"bracket-be/internal/domain"
	"bracket-be/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AdminEventRepository persists the audit trail of administrative score
// adjustments.
type AdminEventRepository struct {
	db *database.PostgresDB
}

func NewAdminEventRepository(db *database.PostgresDB) *AdminEventRepository {
	return &AdminEventRepository{db: db}
}

// Insert writes one audit record inside the caller's transaction, so the
// event and its score mutation land together or not at all.
func (r *AdminEventRepository) Insert(ctx context.Context, tx pgx.Tx, event *domain.AdminEvent) error {
	query := `
		INSERT INTO admin_events (id, season_id, match_id, entrant_id, delta, reason, actor_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		event.ID, event.SeasonID, event.MatchID, event.EntrantID,
		event.Delta, event.Reason, event.ActorEmail,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert admin event: %w", err)
	}

	return nil
}

// ListByMatch returns a match's audit trail, oldest first.
func (r *AdminEventRepository) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.AdminEvent, error) {
	query := `
		SELECT id, season_id, match_id, entrant_id, delta, reason, actor_email, created_at
		FROM admin_events
		WHERE match_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin events: %w", err)
	}
	defer rows.Close()

	var events []domain.AdminEvent
	for rows.Next() {
		var e domain.AdminEvent
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.MatchID, &e.EntrantID, &e.Delta, &e.Reason, &e.ActorEmail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
