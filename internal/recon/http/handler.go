// Package reconhttp exposes the reconciliation record over a JSON API.
package reconhttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/money"
	"github.com/hostdesk/hostdesk/internal/platform/httpx"
	"github.com/hostdesk/hostdesk/internal/recon"
)

// Handler wires HTTP endpoints for the reconciliation lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *recon.Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *recon.Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rooms/{roomID}/reconciliation", func(r chi.Router) {
		r.Post("/", h.initRecord)
		r.Get("/", h.getRecord)
		r.Delete("/", h.teardown)
		r.Get("/totals", h.totals)
		r.Post("/adjustments", h.addAdjustment)
		r.Put("/notes", h.setNotes)
		r.Post("/approve", h.approve)
		r.Route("/awards", func(r chi.Router) {
			r.Post("/", h.declareAward)
			r.Post("/{awardID}/transition", h.transitionAward)
			r.Post("/{awardID}/reopen", h.reopenAward)
			r.Patch("/{awardID}", h.patchAward)
		})
	})
}

type adjustmentRequest struct {
	Type       string `json:"type" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
	ReasonCode string `json:"reasonCode"`
	Note       string `json:"note"`
	CreatedBy  string `json:"createdBy" validate:"required"`
}

type declareAwardRequest struct {
	Place          *int   `json:"place"`
	PrizeName      string `json:"prizeName" validate:"required"`
	DeclaredValue  string `json:"declaredValue" validate:"required"`
	Sponsor        string `json:"sponsor"`
	WinnerPlayerID string `json:"winnerPlayerId"`
	WinnerName     string `json:"winnerName"`
	DeclaredBy     string `json:"declaredBy" validate:"required"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Actor  string `json:"actor" validate:"required"`
	Note   string `json:"note"`
}

type reopenRequest struct {
	Actor string `json:"actor" validate:"required"`
	Note  string `json:"note"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type approveRequest struct {
	ApprovedBy string `json:"approvedBy" validate:"required"`
	Notes      string `json:"notes"`
}

func (h *Handler) initRecord(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	record, err := h.service.InitRecord(r.Context(), roomID)
	if err != nil {
		h.respondError(w, "init record", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.respondError(w, "get record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) teardown(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Teardown(r.Context(), chi.URLParam(r, "roomID")); err != nil {
		h.respondError(w, "teardown record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.respondError(w, "compute totals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) addAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !h.bind(w, r, &req) {
		return
	}
	amount, err := money.NonNegativeFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.AddAdjustment(r.Context(), chi.URLParam(r, "roomID"), recon.AdjustmentInput{
		Type:       recon.AdjustmentType(req.Type),
		Amount:     amount,
		ReasonCode: recon.ReasonCode(req.ReasonCode),
		Note:       req.Note,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		h.respondError(w, "add adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) declareAward(w http.ResponseWriter, r *http.Request) {
	var req declareAwardRequest
	if !h.bind(w, r, &req) {
		return
	}
	value, err := money.NonNegativeFromString(req.DeclaredValue)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	award, err := h.service.DeclareAward(r.Context(), chi.URLParam(r, "roomID"), recon.DeclareAwardInput{
		Place:          req.Place,
		PrizeName:      req.PrizeName,
		DeclaredValue:  value,
		Sponsor:        req.Sponsor,
		WinnerPlayerID: req.WinnerPlayerID,
		WinnerName:     req.WinnerName,
		DeclaredBy:     req.DeclaredBy,
	})
	if err != nil {
		h.respondError(w, "declare award", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, award)
}

func (h *Handler) transitionAward(w http.ResponseWriter, r *http.Request) {
	awardID, ok := h.awardID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !h.bind(w, r, &req) {
		return
	}
	status, err := recon.ParseAwardStatus(req.Status)
	if err != nil {
		h.respondError(w, "transition award", err)
		return
	}
	award, err := h.service.TransitionAward(r.Context(), chi.URLParam(r, "roomID"), awardID, status, req.Actor, req.Note)
	if err != nil {
		h.respondError(w, "transition award", err)
		return
	}
	httpx.JSON(w, http.StatusOK, award)
}

func (h *Handler) reopenAward(w http.ResponseWriter, r *http.Request) {
	awardID, ok := h.awardID(w, r)
	if !ok {
		return
	}
	var req reopenRequest
	if !h.bind(w, r, &req) {
		return
	}
	award, err := h.service.ReopenAward(r.Context(), chi.URLParam(r, "roomID"), awardID, req.Actor, req.Note)
	if err != nil {
		h.respondError(w, "reopen award", err)
		return
	}
	httpx.JSON(w, http.StatusOK, award)
}

func (h *Handler) patchAward(w http.ResponseWriter, r *http.Request) {
	awardID, ok := h.awardID(w, r)
	if !ok {
		return
	}
	var patch recon.AwardPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	award, err := h.service.PatchAward(r.Context(), chi.URLParam(r, "roomID"), awardID, patch)
	if err != nil {
		h.respondError(w, "patch award", err)
		return
	}
	httpx.JSON(w, http.StatusOK, award)
}

func (h *Handler) setNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if !h.bind(w, r, &req) {
		return
	}
	record, err := h.service.SetNotes(r.Context(), chi.URLParam(r, "roomID"), req.Notes)
	if err != nil {
		h.respondError(w, "set notes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !h.bind(w, r, &req) {
		return
	}
	record, err := h.service.Approve(r.Context(), chi.URLParam(r, "roomID"), req.ApprovedBy, req.Notes)
	if err != nil {
		h.respondError(w, "approve record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

// bind decodes and validates the request body, writing the failure response
// itself. A false return means the handler must stop.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) awardID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "awardID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "awardID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	var validation *recon.ValidationError
	var locked *recon.LockedError
	switch {
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &locked):
		httpx.Problem(w, http.StatusConflict, "Record Locked", locked.Error())
	case errors.Is(err, recon.ErrRecordNotFound), errors.Is(err, recon.ErrAwardNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, recon.ErrRecordExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		if h.logger != nil {
			h.logger.Error(action, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
