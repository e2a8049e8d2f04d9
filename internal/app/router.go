package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/talentfinder/internal/adapter/httpserver"
	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestTimeout leaves room for one full talent API call plus retries of
// the idempotent ones.
func requestTimeout(cfg config.Config) time.Duration {
	d := cfg.TalentAPITimeout + 5*time.Second
	if d < 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(requestTimeout(cfg)))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Mutating endpoints are rate limited per client IP.
	r.Group(func(wr chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		}
		wr.Post("/v1/search", srv.SubmitSearchHandler())
		wr.Put("/v1/search/filter", srv.FilterHandler())
		wr.Put("/v1/search/page", srv.PageHandler())
		wr.Post("/v1/uploads", srv.UploadHandler())
		wr.Delete("/v1/uploads/current", srv.CancelUploadHandler())
		wr.Delete("/v1/admin/resumes", srv.ClearResumesHandler())
		wr.Post("/v1/auth/login", srv.LoginHandler())
		wr.Post("/v1/auth/signup", srv.SignupHandler())
		wr.Post("/v1/auth/logout", srv.LogoutHandler())
	})

	r.Get("/v1/search", srv.ResultsHandler())
	r.Get("/v1/search/dashboard", srv.DashboardHandler())
	r.Get("/v1/search/export.xlsx", srv.ExportHandler())
	r.Get("/v1/profiles/{id}", srv.ProfileHandler())
	r.Get("/v1/uploads/current", srv.CurrentUploadHandler())
	r.Get("/v1/admin/status", srv.AdminStatusHandler())
	r.Get("/v1/auth/me", srv.MeHandler())

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
