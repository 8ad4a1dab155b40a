package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"bracket-be/internal/config"
	"bracket-be/internal/domain"
	"bracket-be/internal/middleware"
	"bracket-be/internal/service"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AdminHandler exposes the authenticated admin surface: season lifecycle,
// bracket seeding, score adjustments and manual match control.
type AdminHandler struct {
	bracketService   *service.BracketService
	adminService     *service.AdminService
	resolverService  *service.ResolverService
	schedulerService *service.SchedulerService
	cfg              *config.Config
	log              *logger.Logger
}

func NewAdminHandler(
	bracketService *service.BracketService,
	adminService *service.AdminService,
	resolverService *service.ResolverService,
	schedulerService *service.SchedulerService,
	cfg *config.Config,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		bracketService:   bracketService,
		adminService:     adminService,
		resolverService:  resolverService,
		schedulerService: schedulerService,
		cfg:              cfg,
		log:              log,
	}
}

// ListSeasons handles GET /api/admin/seasons
func (h *AdminHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.bracketService.ListSeasons(r.Context())
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, seasons)
}

// CreateSeason handles POST /api/admin/seasons
func (h *AdminHandler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewInvalidInput("Invalid request body"), h.log)
		return
	}

	season, err := h.bracketService.CreateSeason(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusCreated, season)
}

// SeedBracket handles POST /api/admin/seed-bracket
func (h *AdminHandler) SeedBracket(w http.ResponseWriter, r *http.Request) {
	var req domain.SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewInvalidInput("Invalid request body"), h.log)
		return
	}

	if err := h.bracketService.SeedBracket(r.Context(), &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"seasonId": req.SeasonID})
}

// StartSeason handles POST /api/admin/start-season
func (h *AdminHandler) StartSeason(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeasonID string `json:"seasonId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewInvalidInput("Invalid request body"), h.log)
		return
	}

	seasonID, err := uuid.Parse(req.SeasonID)
	if err != nil {
		respondError(w, r, errors.NewInvalidInput("seasonId must be a valid UUID"), h.log)
		return
	}

	if err := h.bracketService.StartSeason(r.Context(), seasonID); err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"seasonId": req.SeasonID})
}

// ApplyEvent handles POST /api/admin/event
func (h *AdminHandler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminEventRequest
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

	actor := middleware.GetAdmin(r.Context())
	if actor == nil {
		respondError(w, r, errors.NewUnauthorized("Admin identity missing"), h.log)
		return
	}

	newScore, err := h.adminService.ApplyEvent(r.Context(), matchID, entrantID, req.Delta, req.Reason, actor.Email)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"newScore": newScore})
}

// ListEvents handles GET /api/admin/matches/{matchId}/events
func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "matchId"))
	if err != nil {
		respondError(w, r, errors.NewInvalidInput("matchId must be a valid UUID"), h.log)
		return
	}

	events, err := h.adminService.ListEvents(r.Context(), matchID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// ForceEnd handles POST /api/admin/force-end. It resolves the named match
// immediately, regardless of its deadline.
func (h *AdminHandler) ForceEnd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID string `json:"matchId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewInvalidInput("Invalid request body"), h.log)
		return
	}

	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		respondError(w, r, errors.NewInvalidInput("matchId must be a valid UUID"), h.log)
		return
	}

	outcome, err := h.resolverService.ResolveMatch(r.Context(), matchID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// StartNextMatch handles POST /api/admin/start-next-match
func (h *AdminHandler) StartNextMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.schedulerService.StartNextMatch(r.Context())
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

// ResolveDue handles POST /api/admin/resolve-due. Manual trigger for the
// same pass the scheduler runs on its timer.
func (h *AdminHandler) ResolveDue(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.schedulerService.ResolveDueMatches(r.Context())
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"resolved": resolved})
}

// TestEnd handles POST /api/admin/test-end. Development only: pulls the
// active match's deadline in so the scheduler resolves it on its next tick.
func (h *AdminHandler) TestEnd(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.IsDevelopment() {
		respondError(w, r, errors.NewForbidden("Not available in this environment"), h.log)
		return
	}

	match, err := h.schedulerService.ShortenActiveMatch(r.Context(), 5*time.Second)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}
	respondJSON(w, http.StatusOK, match)
}
