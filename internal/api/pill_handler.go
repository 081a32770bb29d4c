package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/pillbox-api/internal/api/shared"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/redact"
	"github.com/phrazzld/pillbox-api/internal/service"
)

// PillHandler handles pill-related HTTP requests
type PillHandler struct {
	pillService service.PillService
	logger      *slog.Logger
}

// NewPillHandler creates a new PillHandler
func NewPillHandler(pillService service.PillService, logger *slog.Logger) *PillHandler {
	if pillService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("pillService cannot be nil for PillHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PillHandler{
		pillService: pillService,
		logger:      logger.With(slog.String("component", "pill_handler")),
	}
}

// Routes mounts the pill endpoints on r.
func (h *PillHandler) Routes(r chi.Router) {
	r.Route("/pills", func(r chi.Router) {
		r.Get("/", h.ListPills)
		r.Post("/", h.CreatePill)
		r.Get("/{id}", h.GetPill)
		r.Put("/{id}", h.UpdatePill)
		r.Delete("/{id}", h.DeletePill)
	})
}

// ListPills handles GET /pills requests
func (h *PillHandler) ListPills(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	pills, err := h.pillService.ListPills(r.Context(), userID)
	if err != nil {
		handlePillError(w, r, err, actionView)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PillListEnvelope{Pills: pillsToResponse(pills)})
}

// GetPill handles GET /pills/{id} requests
func (h *PillHandler) GetPill(w http.ResponseWriter, r *http.Request) {
	userID, pillID, ok := requireUserAndPill(w, r)
	if !ok {
		return
	}

	pill, err := h.pillService.GetPill(r.Context(), userID, pillID)
	if err != nil {
		handlePillError(w, r, err, actionView)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PillEnvelope{Pill: pillToResponse(pill)})
}

// CreatePill handles POST /pills requests
// A pill that was saved but whose reminder could not be scheduled is still
// reported as created, with an error flash next to the success flash.
func (h *PillHandler) CreatePill(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreatePillRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidRequest, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidRequest, err)
		return
	}

	pill, err := h.pillService.CreatePill(r.Context(), userID, req.toInput())
	if err != nil && !(pill != nil && errors.Is(err, service.ErrSchedulingFailed)) {
		handlePillError(w, r, err, actionEdit)
		return
	}

	flash := []shared.Flash{shared.NewFlash(shared.FlashSuccess, MsgPillCreated)}
	if err != nil {
		log.Warn("pill created without a scheduled reminder",
			slog.String("pill_id", pill.ID.String()),
			slog.String("error", redact.Error(err)))
		flash = append(flash, shared.NewFlash(shared.FlashError, MsgServerError))
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, PillEnvelope{
		Pill:  pillToResponse(pill),
		Flash: flash,
	})
}

// UpdatePill handles PUT /pills/{id} requests
func (h *PillHandler) UpdatePill(w http.ResponseWriter, r *http.Request) {
	userID, pillID, ok := requireUserAndPill(w, r)
	if !ok {
		return
	}

	var req UpdatePillRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidRequest, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidRequest, err)
		return
	}

	pill, err := h.pillService.UpdatePill(r.Context(), userID, pillID, req.toPatch())
	if err != nil {
		handlePillError(w, r, err, actionEdit)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PillEnvelope{
		Pill:  pillToResponse(pill),
		Flash: []shared.Flash{shared.NewFlash(shared.FlashSuccess, MsgPillUpdated)},
	})
}

// DeletePill handles DELETE /pills/{id} requests
func (h *PillHandler) DeletePill(w http.ResponseWriter, r *http.Request) {
	userID, pillID, ok := requireUserAndPill(w, r)
	if !ok {
		return
	}

	if err := h.pillService.DeletePill(r.Context(), userID, pillID); err != nil {
		handlePillError(w, r, err, actionDelete)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FlashEnvelope{
		Flash: []shared.Flash{shared.NewFlash(shared.FlashSuccess, MsgPillDeleted)},
	})
}
