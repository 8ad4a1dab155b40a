package domain

import (
	"time"

	"github.com/google/uuid"
)

// Fixed 8-entrant bracket topology: matches 1-4 are quarterfinals, 5-6 the
// semifinals, 7 the final. Matches 1-2 feed 5, 3-4 feed 6, 5-6 feed 7.
const (
	EntrantCount         = 8
	EntrantsPerConf      = 4
	MatchCount           = 7
	FinalMatchNumber     = 7
	RoundQuarterfinal    = 1
	RoundSemifinal       = 2
	RoundFinal           = 3
)

// Match is a single bout in the bracket. Slots are nil until both feeder
// matches resolve, except round 1 which is pre-filled at seeding.
type Match struct {
	ID             uuid.UUID  `json:"id"`
	SeasonID       uuid.UUID  `json:"season_id"`
	MatchNumber    int        `json:"match_number"`
	Round          int        `json:"round"`
	EntrantAID     *uuid.UUID `json:"entrant_a_id"`
	EntrantBID     *uuid.UUID `json:"entrant_b_id"`
	CurrentScoreA  int        `json:"current_score_a"`
	CurrentScoreB  int        `json:"current_score_b"`
	FinalScoreA    *int       `json:"final_score_a"`
	FinalScoreB    *int       `json:"final_score_b"`
	StartedAt      *time.Time `json:"started_at"`
	EndsAt         *time.Time `json:"ends_at"`
	Active         bool       `json:"active"`
	Finished       bool       `json:"finished"`
	WinnerID       *uuid.UUID `json:"winner_id"`
	TieBreakRandom bool       `json:"tie_break_random"`
	NextMatchID    *uuid.UUID `json:"next_match_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasEntrant reports whether id occupies one of the match's two slots.
func (m *Match) HasEntrant(id uuid.UUID) bool {
	return (m.EntrantAID != nil && *m.EntrantAID == id) ||
		(m.EntrantBID != nil && *m.EntrantBID == id)
}

// BothSlotsFilled reports whether the match is fully slotted and therefore
// eligible for activation.
func (m *Match) BothSlotsFilled() bool {
	return m.EntrantAID != nil && m.EntrantBID != nil
}

// OpponentOf returns the other slot's entrant. Nil when id is not in the
// match or the other slot is empty.
func (m *Match) OpponentOf(id uuid.UUID) *uuid.UUID {
	if m.EntrantAID != nil && *m.EntrantAID == id {
		return m.EntrantBID
	}
	if m.EntrantBID != nil && *m.EntrantBID == id {
		return m.EntrantAID
	}
	return nil
}

// RoundForMatchNumber maps a match number to its round in the fixed
// topology.
func RoundForMatchNumber(n int) int {
	switch {
	case n <= 4:
		return RoundQuarterfinal
	case n <= 6:
		return RoundSemifinal
	default:
		return RoundFinal
	}
}

// MatchSlot is one side of a match joined with its entrant, as served by the
// public bracket endpoints.
type MatchSlot struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	ColorHex     string     `json:"color_hex"`
	Conference   Conference `json:"conference"`
	CurrentScore int        `json:"current_score"`
	FinalScore   *int       `json:"final_score,omitempty"`
}

// MatchView is a match with both slots joined, the shape the frontend
// renders the bracket from.
type MatchView struct {
	ID             uuid.UUID  `json:"id"`
	SeasonID       uuid.UUID  `json:"season_id"`
	MatchNumber    int        `json:"match_number"`
	Round          int        `json:"round"`
	StartedAt      *time.Time `json:"started_at"`
	EndsAt         *time.Time `json:"ends_at"`
	Active         bool       `json:"active"`
	Finished       bool       `json:"finished"`
	WinnerID       *uuid.UUID `json:"winner_id"`
	TieBreakRandom bool       `json:"tie_break_random"`
	NextMatchID    *uuid.UUID `json:"next_match_id"`
	EntrantA       *MatchSlot `json:"entrant_a"`
	EntrantB       *MatchSlot `json:"entrant_b"`
}

// ResolveOutcome is the result of resolving one match. Replayed resolutions
// return the recorded outcome with Replayed set.
type ResolveOutcome struct {
	MatchID            uuid.UUID  `json:"match_id"`
	WinnerID           uuid.UUID  `json:"winner_id"`
	LoserID            uuid.UUID  `json:"loser_id"`
	FinalScoreA        int        `json:"final_score_a"`
	FinalScoreB        int        `json:"final_score_b"`
	TieBreakRandom     bool       `json:"tie_break_random"`
	NextMatchID        *uuid.UUID `json:"next_match_id"`
	NextMatchActivated bool       `json:"next_match_activated"`
	TournamentComplete bool       `json:"tournament_complete"`
	Replayed           bool       `json:"replayed"`
}
