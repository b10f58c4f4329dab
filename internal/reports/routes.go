package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts below /api/reports. admin guards the staff endpoints and
// limit throttles submissions; either may be nil.
func SetupRoutes(h *Handler, admin, limit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.With(optional(limit)).Post("/", h.CreateReport)
	r.Get("/{trackingNumber}", h.GetReport)

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(optional(admin))

		r.Get("/", h.ListReports)
		r.Get("/nearby", h.GetNearbyReports)
		r.Patch("/{trackingNumber}/status", h.UpdateReportStatus)
	})

	return r
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
