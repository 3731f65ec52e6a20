package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/infra/http/handlers"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/http/middleware"
)

type Options struct {
	Logger             zerolog.Logger
	AllowedOrigins     []string
	CaptureLimitPerMin int
	RetargetAPIKey     string

	Leads      *handlers.LeadHandler
	Validation *handlers.ValidationHandler
	Health     *handlers.HealthHandler
}

func New(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", opts.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/leads", func(r chi.Router) {
		r.Post("/validate-email", opts.Validation.HandleEmail)
		r.Post("/validate-phone", opts.Validation.HandlePhone)

		limiter := middleware.NewRateLimiter(opts.CaptureLimitPerMin, time.Minute)
		r.With(middleware.RateLimit(limiter)).Post("/capture", opts.Leads.Capture)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(opts.RetargetAPIKey))
			r.Get("/retarget", opts.Leads.ListRetarget)
			r.Post("/{sessionId}/convert", opts.Leads.MarkConverted)
		})
	})

	return r
}
