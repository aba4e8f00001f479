package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter assembles the operator API with its middleware chain.
func NewRouter(handler *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover(logger))
	r.Use(RequestLogger(logger))

	r.Get("/healthz", handler.Healthz)
	r.Get("/readyz", handler.Readyz)

	r.Route("/release/v1", func(r chi.Router) {
		r.Post("/runs", handler.TriggerRun)
		r.Get("/runs/latest", handler.LatestRun)
		r.Route("/earnings/{earningID}", func(r chi.Router) {
			r.Get("/", handler.GetEarning)
			r.Post("/approve", handler.ApproveEarning)
			r.Post("/schedule", handler.ScheduleRelease)
		})
	})

	return r
}
