package domain

import (
	"time"

	"github.com/google/uuid"
)

// Season is one tournament instance. At most one season is active at a time
// in normal operation; the engine scopes every bracket query by season ID.
type Season struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	StartDate time.Time `json:"start_date"`
	CreatedAt time.Time `json:"created_at"`
}
