package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/toggle", s.handleToggleDevice)
			})
		})

		r.Get("/energy", s.handleGetEnergy)

		r.Route("/commands", func(r chi.Router) {
			r.Post("/", s.handleExecuteCommand)
			r.Get("/phrases", s.handleListPhrases)
		})
		r.Post("/voice/listen", s.handleVoiceListen)

		r.Route("/caregivers", func(r chi.Router) {
			r.Get("/", s.handleListCaregivers)
			r.Post("/", s.handleCreateCaregiver)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCaregiver)
				r.Delete("/", s.handleDeleteCaregiver)
				r.Post("/activate", s.handleActivateCaregiver)
				r.Post("/deactivate", s.handleDeactivateCaregiver)
				r.Put("/permissions", s.handleSetPermission)
			})
		})

		r.Get("/audit", s.handleListAudit)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
