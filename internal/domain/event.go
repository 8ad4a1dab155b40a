package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminEvent is an audited out-of-band score adjustment. Applied only while
// the target match is active and outside the cutoff window before its end.
type AdminEvent struct {
	ID         uuid.UUID `json:"id"`
	SeasonID   uuid.UUID `json:"season_id"`
	MatchID    uuid.UUID `json:"match_id"`
	EntrantID  uuid.UUID `json:"entrant_id"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"`
	ActorEmail string    `json:"actor_email"`
	CreatedAt  time.Time `json:"created_at"`
}

// AdminEventRequest is the admin score-adjustment body.
type AdminEventRequest struct {
	SeasonID  string `json:"seasonId"`
	MatchID   string `json:"matchId"`
	EntrantID string `json:"entrantId"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}

// SeedRequest creates a season's bracket from exactly 8 entrants,
// 4 per conference.
type SeedRequest struct {
	SeasonID string        `json:"seasonId"`
	Entrants []EntrantSeed `json:"entrants"`
}
