package web

import (
	"net/http"

	"TrainAnnouncer/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig: параметры роутера из config.WebServerConfig.
type RouterConfig struct {
	// APIKey защищает /api; пусто: без авторизации.
	APIKey string
	// CorsAllowedOrigins; пусто: "*".
	CorsAllowedOrigins []string
	// Metrics: nil отключает /metrics и счётчики запросов.
	Metrics *telemetry.Metrics
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	allowedOrigins := cfg.CorsAllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(APIKeyAuth(cfg.APIKey))
		}

		r.Get("/state", h.GetState)
		r.Post("/route", h.UploadRoute)
		r.Post("/next", h.Next)
		r.Post("/repeat", h.Repeat)
		r.Post("/reset", h.Reset)

		r.Get("/presets", h.ListPresets)
		r.Post("/presets/{id}", h.SpeakPreset)
		r.Get("/history", h.History)

		r.Get("/hotkeys", h.GetHotkeys)
		r.Put("/hotkeys", h.PutHotkeys)

		r.Get("/events", h.Events)
	})

	return r
}
