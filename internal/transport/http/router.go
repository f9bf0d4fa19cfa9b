package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every endpoint. CORS is wide open: the dashboard frontend
// is deployed on a separate origin.
func NewRouter(h *Handler, authMW *AuthMiddleware) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(Metrics)

	r.Get("/", h.Dashboard)
	r.Get("/summary/{resourceID}", h.TrendSummary)
	r.Get("/export/csv", h.ExportCSV)
	r.Get("/events", h.ListEvents)
	r.Get("/ws", h.WebSocket)
	r.Get("/health", h.Health)
	r.Handle("/prometheus", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW.Wrap)
		r.Post("/bridge", h.UpsertBridge)
		r.Delete("/bridge/{bridgeID}", h.DeleteBridge)
		r.Post("/sensor", h.UpsertSensor)
		r.Delete("/sensor/{sensorID}", h.DeleteSensor)
		r.Post("/events/{eventID}/ack", h.AckEvent)
	})

	return r
}
