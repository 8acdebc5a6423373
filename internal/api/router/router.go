// Package router assembles the dashboard's HTTP surface.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicdesk/dashboard/internal/http/handlers"
	httpmiddleware "github.com/clinicdesk/dashboard/internal/http/middleware"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Appointments   *handlers.Appointments
	Profile        *handlers.Profile
	Sessions       *httpmiddleware.Sessions
	MetricsHandler http.Handler
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		cfg.Profile.PublicRoutes(api)
		api.Group(func(private chi.Router) {
			private.Use(cfg.Sessions.Require)
			cfg.Appointments.Routes(private)
			cfg.Profile.Routes(private)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
