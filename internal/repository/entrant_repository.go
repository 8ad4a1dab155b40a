package repository

import (
	"context"
	"errors"
	"fmt"

	"bracket-be/internal/domain"
	"bracket-be/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EntrantRepository persists entrants in PostgreSQL.
type EntrantRepository struct {
	db *database.PostgresDB
}

func NewEntrantRepository(db *database.PostgresDB) *EntrantRepository {
	return &EntrantRepository{db: db}
}

// CreateBatch inserts the seeding batch inside the caller's transaction.
func (r *EntrantRepository) CreateBatch(ctx context.Context, tx pgx.Tx, entrants []domain.Entrant) error {
	query := `
		INSERT INTO entrants (id, season_id, name, color_hex, conference, eliminated)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range entrants {
		e := &entrants[i]
		if _, err := tx.Exec(ctx, query,
			e.ID, e.SeasonID, e.Name, e.ColorHex, e.Conference, e.Eliminated,
		); err != nil {
			return fmt.Errorf("failed to create entrant %q: %w", e.Name, err)
		}
	}

	return nil
}

// GetByID retrieves an entrant. Returns (nil, nil) when absent.
func (r *EntrantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entrant, error) {
	var e domain.Entrant
	query := `
		SELECT id, season_id, name, color_hex, conference, eliminated, created_at
		FROM entrants
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.SeasonID, &e.Name, &e.ColorHex, &e.Conference, &e.Eliminated, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entrant: %w", err)
	}

	return &e, nil
}

// ListBySeason returns a season's entrants in seeding order.
func (r *EntrantRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Entrant, error) {
	query := `
		SELECT id, season_id, name, color_hex, conference, eliminated, created_at
		FROM entrants
		WHERE season_id = $1
		ORDER BY created_at, name
	`

	rows, err := r.db.Pool.Query(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entrants: %w", err)
	}
	defer rows.Close()

	var entrants []domain.Entrant
	for rows.Next() {
		var e domain.Entrant
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.Name, &e.ColorHex, &e.Conference, &e.Eliminated, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entrant: %w", err)
		}
		entrants = append(entrants, e)
	}

	return entrants, rows.Err()
}

// MarkEliminated flags the loser of a finished match inside the resolver's
// transaction.
func (r *EntrantRepository) MarkEliminated(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE entrants SET eliminated = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark entrant eliminated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entrant %s not found", id)
	}
	return nil
}
