package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
)

// ReadyCheck is one dependency probed by the readiness endpoint.
type ReadyCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server aggregates handler dependencies. The sessions belong to the single
// user this process serves.
type Server struct {
	Cfg      config.Config
	Search   *usecase.SearchSession
	Uploads  *usecase.UploadSession
	Profiles domain.ProfileAPI
	Auth     *usecase.AuthSession
	Admin    usecase.AdminService
	Checks   []ReadyCheck

	now func() time.Time
}

// NewServer constructs the handler set.
func NewServer(cfg config.Config, search *usecase.SearchSession, uploads *usecase.UploadSession, profiles domain.ProfileAPI, auth *usecase.AuthSession, admin usecase.AdminService, checks ...ReadyCheck) *Server {
	return &Server{
		Cfg:      cfg,
		Search:   search,
		Uploads:  uploads,
		Profiles: profiles,
		Auth:     auth,
		Admin:    admin,
		Checks:   checks,
		now:      time.Now,
	}
}

// HealthzHandler reports liveness only.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes every configured dependency.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			if err := c.Probe(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
