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

// SeasonRepository persists seasons in PostgreSQL.
type SeasonRepository struct {
	db *database.PostgresDB
}

func NewSeasonRepository(db *database.PostgresDB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

// Create inserts a new season.
func (r *SeasonRepository) Create(ctx context.Context, season *domain.Season) error {
	query := `
		INSERT INTO seasons (id, name, active, start_date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		season.ID,
		season.Name,
		season.Active,
		season.StartDate,
	).Scan(&season.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}

	return nil
}

// GetByID retrieves a season. Returns (nil, nil) when absent.
func (r *SeasonRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Season, error) {
	var season domain.Season
	query := `
		SELECT id, name, active, start_date, created_at
		FROM seasons
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&season.ID,
		&season.Name,
		&season.Active,
		&season.StartDate,
		&season.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	return &season, nil
}

// GetActive retrieves the active season. Returns (nil, nil) when no season
// is running.
func (r *SeasonRepository) GetActive(ctx context.Context) (*domain.Season, error) {
	var season domain.Season
	query := `
		SELECT id, name, active, start_date, created_at
		FROM seasons
		WHERE active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&season.ID,
		&season.Name,
		&season.Active,
		&season.StartDate,
		&season.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}

	return &season, nil
}

// List returns all seasons, newest first.
func (r *SeasonRepository) List(ctx context.Context) ([]domain.Season, error) {
	query := `
		SELECT id, name, active, start_date, created_at
		FROM seasons
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []domain.Season
	for rows.Next() {
		var s domain.Season
		if err := rows.Scan(&s.ID, &s.Name, &s.Active, &s.StartDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}

	return seasons, rows.Err()
}

// SetActive flips a season's active flag inside the caller's transaction.
func (r *SeasonRepository) SetActive(ctx context.Context, tx pgx.Tx, id uuid.UUID, active bool) error {
	tag, err := tx.Exec(ctx, `UPDATE seasons SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update season active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("season %s not found", id)
	}
	return nil
}
