// Package archivehttp exposes archive export requests over a JSON API.
package archivehttp

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/archive"
	"github.com/hostdesk/hostdesk/internal/platform/httpx"
	"github.com/hostdesk/hostdesk/internal/recon"
)

// Handler wires HTTP endpoints for archive exports.
type Handler struct {
	logger    *slog.Logger
	service   *archive.Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *archive.Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers archive routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rooms/{roomID}/archives", func(r chi.Router) {
		r.Post("/", h.request)
		r.Get("/", h.list)
	})
	r.Route("/archives/{requestID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Get("/download", h.download)
		r.Get("/digest", h.digest)
	})
}

type exportRequest struct {
	RequestedBy string `json:"requestedBy" validate:"required"`
	Draft       bool   `json:"draft"`
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	stored, err := h.service.RequestExport(r.Context(), chi.URLParam(r, "roomID"), req.RequestedBy, req.Draft)
	if err != nil {
		h.respondError(w, "request export", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, stored)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListByRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.respondError(w, "list exports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, requests)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	req, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	req, ok := h.load(w, r)
	if !ok {
		return
	}
	if req.Status != archive.StatusReady || req.FilePath == "" {
		h.respondError(w, "download bundle", archive.ErrBundleNotReady)
		return
	}
	file, err := os.Open(req.FilePath)
	if err != nil {
		h.respondError(w, "open bundle", err)
		return
	}
	defer file.Close()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+req.ID.String()+".zip")
	if _, err := io.Copy(w, file); err != nil && h.logger != nil {
		h.logger.Warn("stream bundle", slog.Any("error", err))
	}
}

func (h *Handler) digest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.load(w, r)
	if !ok {
		return
	}
	if req.Status != archive.StatusReady || req.DigestPath == "" {
		h.respondError(w, "download digest", archive.ErrBundleNotReady)
		return
	}
	data, err := os.ReadFile(req.DigestPath)
	if err != nil {
		h.respondError(w, "read digest", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write(data)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (archive.Request, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "requestID must be a UUID")
		return archive.Request{}, false
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get export", err)
		return archive.Request{}, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	var validation *recon.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.Is(err, archive.ErrNotApproved):
		httpx.Problem(w, http.StatusConflict, "Not Approved", err.Error())
	case errors.Is(err, archive.ErrBundleNotReady):
		httpx.Problem(w, http.StatusConflict, "Not Ready", err.Error())
	case errors.Is(err, archive.ErrRequestNotFound), errors.Is(err, recon.ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		if h.logger != nil {
			h.logger.Error(action, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
