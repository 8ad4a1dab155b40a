package handler

import (
	"encoding/json"
	"net/http"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/service"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
	"bracket-be/pkg/voterkey"

	"github.com/google/uuid"
)

// VotingHandler handles public vote submission.
type VotingHandler struct {
	votingService  *service.VotingService
	bracketService *service.BracketService
	cfg            *config.Config
	log            *logger.Logger
}

func NewVotingHandler(
	votingService *service.VotingService,
	bracketService *service.BracketService,
	cfg *config.Config,
	log *logger.Logger,
) *VotingHandler {
	return &VotingHandler{
		votingService:  votingService,
		bracketService: bracketService,
		cfg:            cfg,
		log:            log,
	}
}

// SubmitVote handles POST /api/vote. The voter key is derived server-side
// from the client IP; nothing the client sends can influence it.
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewInvalidInput("Invalid request body"), h.log)
		return
	}

	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		respondError(w, r, errors.NewInvalidInput("matchId must be a valid UUID"), h.log)
		return
	}
	entrantID, err := uuid.Parse(req.EntrantID)
	if err != nil {
		respondError(w, r, errors.NewInvalidInput("entrantId must be a valid UUID"), h.log)
		return
	}

	// Votes only land on the live match; resolving it here also provides
	// the season ID the voter key derivation needs.
	active, err := h.bracketService.GetActiveMatch(ctx)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	if active == nil || active.ID != matchID {
		respondError(w, r, errors.NewInvalidState(errors.CodeMatchNotActive, "Match is not active"), h.log)
		return
	}

	clientIP := voterkey.ClientIP(r)
	key := voterkey.Derive(clientIP, active.SeasonID.String(), matchID.String(), h.cfg.IPHashSalt)

	newScore, err := h.votingService.CastVote(ctx, matchID, entrantID, key)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, domain.VoteResponse{NewScore: newScore})
}
