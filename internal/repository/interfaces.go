package repository

import (
	"context"
	"errors"
	"time"

	"bracket-be/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Score sides of a match row.
const (
	SideA = "a"
	SideB = "b"
)

// ErrDuplicateVote is returned when the votes unique constraint on
// (match_id, voter_key) rejects an insert. The constraint, not an
// application-level existence check, is what closes the check-then-insert
// race.
var ErrDuplicateVote = errors.New("duplicate vote for match and voter key")

// TxBeginner starts transactions. Satisfied by *database.PostgresDB; engine
// services depend on this rather than the pool so tests can substitute it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SeasonStore defines season persistence operations.
type SeasonStore interface {
	Create(ctx context.Context, season *domain.Season) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Season, error)
	GetActive(ctx context.Context) (*domain.Season, error)
	List(ctx context.Context) ([]domain.Season, error)
	SetActive(ctx context.Context, tx pgx.Tx, id uuid.UUID, active bool) error
}

// EntrantStore defines entrant persistence operations. Entrants are created
// in one batch at seeding and mutated only by elimination.
type EntrantStore interface {
	CreateBatch(ctx context.Context, tx pgx.Tx, entrants []domain.Entrant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Entrant, error)
	ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Entrant, error)
	MarkEliminated(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// MatchStore defines match persistence operations. Methods taking a pgx.Tx
// participate in a caller-owned transaction; the ForUpdate variants lock the
// row so slot filling and score settlement serialize per match.
type MatchStore interface {
	CreateBatch(ctx context.Context, tx pgx.Tx, matches []domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Match, error)
	GetBySeasonAndNumberForUpdate(ctx context.Context, tx pgx.Tx, seasonID uuid.UUID, matchNumber int) (*domain.Match, error)
	GetAnyActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.Match, error)
	FindNextEligibleForUpdate(ctx context.Context, tx pgx.Tx) (*domain.Match, error)
	FindDue(ctx context.Context, now time.Time) ([]domain.Match, error)
	Update(ctx context.Context, tx pgx.Tx, match *domain.Match) error
	AddScore(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, side string, delta int) (int, error)
	DeactivateOthers(ctx context.Context, tx pgx.Tx, seasonID, exceptID uuid.UUID) error

	ListViewsBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.MatchView, error)
	GetActiveView(ctx context.Context) (*domain.MatchView, error)
	GetLastFinishedView(ctx context.Context) (*domain.MatchView, error)
}

// VoteStore defines ballot persistence. Append-only.
type VoteStore interface {
	Insert(ctx context.Context, tx pgx.Tx, vote *domain.Vote) error
	CountByMatchAndEntrant(ctx context.Context, matchID, entrantID uuid.UUID) (int, error)
}

// AdminEventStore defines the audit trail for administrative score
// adjustments.
type AdminEventStore interface {
	Insert(ctx context.Context, tx pgx.Tx, event *domain.AdminEvent) error
	ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.AdminEvent, error)
}
