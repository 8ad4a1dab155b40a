package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is an immutable ballot. Never mutated or deleted; uniqueness on
// (match_id, voter_key) is enforced by the store, not by the application.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	SeasonID  uuid.UUID `json:"season_id"`
	MatchID   uuid.UUID `json:"match_id"`
	EntrantID uuid.UUID `json:"entrant_id"`
	VoterKey  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteRequest is the public vote submission body. The voter key is derived
// server-side, never taken from the client.
type VoteRequest struct {
	MatchID   string `json:"matchId"`
	EntrantID string `json:"entrantId"`
}

// VoteResponse reports the voted entrant's score after settlement.
type VoteResponse struct {
	NewScore int `json:"newScore"`
}
