package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conference is the half of the bracket an entrant starts in.
type Conference string

const (
	ConferenceLeft  Conference = "left"
	ConferenceRight Conference = "right"
)

// IsValid reports whether c is one of the two bracket halves.
func (c Conference) IsValid() bool {
	return c == ConferenceLeft || c == ConferenceRight
}

// Entrant is a contestant. Created in a batch of 8 at seeding time, mutated
// only when the resolver eliminates the loser of a finished match.
type Entrant struct {
	ID         uuid.UUID  `json:"id"`
	SeasonID   uuid.UUID  `json:"season_id"`
	Name       string     `json:"name"`
	ColorHex   string     `json:"color_hex"`
	Conference Conference `json:"conference"`
	Eliminated bool       `json:"eliminated"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EntrantSeed is one entry of the seeding request.
type EntrantSeed struct {
	Name       string     `json:"name"`
	ColorHex   string     `json:"color"`
	Conference Conference `json:"conference"`
}
