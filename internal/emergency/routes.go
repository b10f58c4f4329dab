package emergency

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts below /api/emergency. admin and limit may be nil.
func SetupRoutes(h *Handler, admin, limit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	if limit != nil {
		r.With(limit).Post("/", h.CreateEmergency)
	} else {
		r.Post("/", h.CreateEmergency)
	}

	r.Group(func(r chi.Router) {
		if admin != nil {
			r.Use(admin)
		}
		r.Get("/", h.ListEmergencies)
		r.Patch("/{id}/status", h.UpdateEmergencyStatus)
	})

	return r
}
