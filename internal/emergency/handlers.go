package emergency

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/romeoscript/crime-report/internal/apperr"
	"github.com/romeoscript/crime-report/internal/httpx"
)

type Handler struct {
	svc *Service
	rs  httpx.Responder
	log *zap.Logger
}

func NewHandler(svc *Service, development bool, log *zap.Logger) *Handler {
	return &Handler{svc: svc, rs: httpx.Responder{Development: development}, log: log.Named("emergency.http")}
}

func (h *Handler) CreateEmergency(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to create emergency report"

	var body struct {
		Description string `json:"description"`
	}
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		h.rs.Error(w, err, fallback)
		return
	}

	res, err := h.svc.Report(r.Context(), body.Description)
	if err != nil {
		h.fail(w, err, fallback, "creating emergency")
		return
	}
	h.rs.OK(w, http.StatusCreated, res)
}

func (h *Handler) UpdateEmergencyStatus(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to update emergency status"

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 0)
	if err != nil {
		h.rs.Error(w, apperr.Validation("Invalid emergency id"), fallback)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		h.rs.Error(w, err, fallback)
		return
	}

	res, err := h.svc.UpdateStatus(r.Context(), uint(id), body.Status)
	if err != nil {
		h.fail(w, err, fallback, "updating emergency status", zap.Uint64("id", id))
		return
	}
	h.rs.OK(w, http.StatusOK, res)
}

func (h *Handler) ListEmergencies(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, err, "Failed to fetch emergencies", "listing emergencies")
		return
	}
	h.rs.OK(w, http.StatusOK, out)
}

// fail writes err as a response, logging anything the client did not cause.
func (h *Handler) fail(w http.ResponseWriter, err error, fallback, msg string, fields ...zap.Field) {
	if !apperr.IsValidation(err) && !apperr.IsNotFound(err) {
		h.log.Error(msg, append(fields, zap.Error(err))...)
	}
	h.rs.Error(w, err, fallback)
}
