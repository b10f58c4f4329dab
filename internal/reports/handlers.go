package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/romeoscript/crime-report/internal/apperr"
	"github.com/romeoscript/crime-report/internal/httpx"
	"github.com/romeoscript/crime-report/internal/media"
)

// multipartMemory is how much of a form is held in memory before parts
// spill to disk.
const multipartMemory = 8 << 20

// Handler exposes the report service over HTTP.
type Handler struct {
	svc            *Service
	rs             httpx.Responder
	log            *zap.Logger
	tempDir        string
	maxUploadBytes int64
}

// HandlerOptions configures how submissions are received.
type HandlerOptions struct {
	Development    bool
	TempDir        string
	MaxUploadBytes int64
}

func NewHandler(svc *Service, opts HandlerOptions, log *zap.Logger) *Handler {
	return &Handler{
		svc:            svc,
		rs:             httpx.Responder{Development: opts.Development},
		log:            log.Named("reports.http"),
		tempDir:        opts.TempDir,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// CreateReport accepts multipart/form-data (with up to five "evidence" files),
// urlencoded forms, or a JSON body without files.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to create report"

	if h.maxUploadBytes > 0 {
		// Room for one file over the limit so the count check can answer.
		r.Body = http.MaxBytesReader(w, r.Body, int64(MaxEvidenceFiles+1)*h.maxUploadBytes+multipartMemory)
	}

	in, files, err := h.readSubmission(w, r)
	if err != nil {
		media.Discard(files...)
		h.rs.Error(w, err, fallback)
		return
	}

	res, err := h.svc.Submit(r.Context(), in, files)
	if err != nil {
		if !apperr.IsValidation(err) {
			h.log.Error("creating report", zap.Error(err))
		}
		h.rs.Error(w, err, fallback)
		return
	}
	h.rs.OK(w, http.StatusCreated, res)
}

func (h *Handler) readSubmission(w http.ResponseWriter, r *http.Request) (SubmitInput, []media.Pending, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			return SubmitInput{}, nil, err
		}
		field := func(k string) string {
			if v, ok := body[k]; ok && v != nil {
				return fmt.Sprint(v)
			}
			return ""
		}
		return SubmitInput{
			Type:            field("type"),
			Description:     field("description"),
			Location:        field("location"),
			Latitude:        field("latitude"),
			Longitude:       field("longitude"),
			DetailedAddress: field("detailedAddress"),
			ContactEmail:    field("contactEmail"),
			ContactPhone:    field("contactPhone"),
		}, nil, nil
	}

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return SubmitInput{}, nil, apperr.Validation("Request body too large")
		}
		return SubmitInput{}, nil, apperr.Validation("Invalid form data")
	}

	in := SubmitInput{
		Type:            r.FormValue("type"),
		Description:     r.FormValue("description"),
		Location:        r.FormValue("location"),
		Latitude:        r.FormValue("latitude"),
		Longitude:       r.FormValue("longitude"),
		DetailedAddress: r.FormValue("detailedAddress"),
		ContactEmail:    r.FormValue("contactEmail"),
		ContactPhone:    r.FormValue("contactPhone"),
	}
	if r.MultipartForm == nil {
		return in, nil, nil
	}
	defer r.MultipartForm.RemoveAll()

	var files []media.Pending
	for _, fh := range r.MultipartForm.File["evidence"] {
		p, err := media.Stage(h.tempDir, fh, h.maxUploadBytes)
		if err != nil {
			if errors.Is(err, media.ErrTooLarge) {
				return in, files, apperr.Validation("Evidence file %q exceeds the %d byte limit", fh.Filename, h.maxUploadBytes)
			}
			return in, files, apperr.Upstream("staging evidence", err)
		}
		files = append(files, p)
	}
	return in, files, nil
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetByTrackingNumber(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		h.rs.Error(w, err, "Failed to fetch report")
		return
	}
	h.rs.OK(w, http.StatusOK, report)
}

func (h *Handler) GetNearbyReports(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to fetch nearby reports"
	q := r.URL.Query()

	lat, err1 := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("longitude"), 64)
	if err1 != nil || err2 != nil {
		h.rs.Error(w, apperr.Validation("Invalid latitude or longitude"), fallback)
		return
	}

	var radius *float64
	if raw := strings.TrimSpace(q.Get("radius")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.rs.Error(w, apperr.Validation("Invalid radius"), fallback)
			return
		}
		radius = &v
	}

	start := time.Now()
	out, err := h.svc.FindNearby(r.Context(), lat, lon, radius)
	if err != nil {
		h.rs.Error(w, err, fallback)
		return
	}
	httpx.AddServerTiming(w, "nearby", time.Since(start))
	h.rs.OK(w, http.StatusOK, out)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	out, err := h.svc.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.rs.Error(w, err, "Failed to fetch reports")
		return
	}
	httpx.AddServerTiming(w, "db", time.Since(start))
	h.rs.OK(w, http.StatusOK, out)
}

type statusRequest struct {
	Status  string  `json:"status"`
	Comment *string `json:"comment"`
}

func (h *Handler) UpdateReportStatus(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to update report status"

	var body statusRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		h.rs.Error(w, err, fallback)
		return
	}

	res, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "trackingNumber"), body.Status, body.Comment)
	if err != nil {
		h.rs.Error(w, err, fallback)
		return
	}
	h.rs.OK(w, http.StatusOK, res)
}
