package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/FACorreiaa/echo-voice-assistant/pkg/interceptors"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/metrics"
)

// NewRouter mounts the public probes and the authenticated assistant routes.
func (d *Dependencies) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(interceptors.Logging(d.Logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.DB.Pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	limiter := interceptors.NewRateLimiter(
		float64(d.Config.Server.RateLimitPerSecond),
		d.Config.Server.RateLimitBurst,
	)

	r.Group(func(r chi.Router) {
		r.Use(interceptors.Auth(d.AuthService, d.Logger))
		r.Use(limiter.Middleware)
		d.AssistantHandler.Routes(r)
	})

	return r
}

// NewMetricsRouter serves the Prometheus registry on its own listener.
func (d *Dependencies) NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler(d.Registry))
	return r
}
