package handler

import (
	"net/http"

	"bracket-be/internal/service"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"

	"github.com/google/uuid"
)

// BracketHandler serves the public read paths: the live match, the full
// bracket and the most recently finished match.
type BracketHandler struct {
	bracketService *service.BracketService
	log            *logger.Logger
}

func NewBracketHandler(bracketService *service.BracketService, log *logger.Logger) *BracketHandler {
	return &BracketHandler{bracketService: bracketService, log: log}
}

// GetCurrentMatchup handles GET /api/current-matchup
func (h *BracketHandler) GetCurrentMatchup(w http.ResponseWriter, r *http.Request) {
	match, err := h.bracketService.GetActiveMatch(r.Context())
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	// A nil match is a normal state between rounds, not an error.
	respondJSON(w, http.StatusOK, match)
}

// GetBracket handles GET /api/tournament-bracket?seasonId=...
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seasonID, err := h.resolveSeasonID(r)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	matches, err := h.bracketService.GetBracket(ctx, seasonID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, matches)
}

// GetLastFinishedMatch handles GET /api/last-finished-match
func (h *BracketHandler) GetLastFinishedMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.bracketService.GetLastFinishedMatch(r.Context())
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, match)
}

// resolveSeasonID takes an explicit seasonId query parameter, falling back
// to the single active season.
func (h *BracketHandler) resolveSeasonID(r *http.Request) (uuid.UUID, error) {
	if raw := r.URL.Query().Get("seasonId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, errors.NewInvalidInput("seasonId must be a valid UUID")
		}
		return id, nil
	}

	season, err := h.bracketService.GetActiveSeason(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	if season == nil {
		return uuid.Nil, errors.NewNotFound(errors.CodeSeasonNotFound, "No active season")
	}
	return season.ID, nil
}
