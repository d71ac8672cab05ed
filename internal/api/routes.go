package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes, one endpoint per gateway
// operation.
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	r.Get("/health", s.HandleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.HandleListDevices)
			r.Post("/", s.HandleRegisterDevice)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetDeviceStatus)
				r.Delete("/", s.HandleRemoveDevice)
				r.Post("/start", s.HandleStartStreaming)
				r.Post("/stop", s.HandleStopStreaming)
				r.Get("/vitals/latest", s.HandleGetLatestVitals)
				r.Get("/vitals/history", s.HandleGetVitalsHistory)
			})
		})

		r.Post("/readings/manual", s.HandleManualReading)
	})
}
