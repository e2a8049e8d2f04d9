package httpserver

import (
	"net/http"

	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
)

// LoginHandler exchanges credentials for a stored token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req usecase.LoginRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if err := s.Auth.Login(r.Context(), req.Email, req.Password); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"logged_in": true})
	}
}

// SignupHandler registers a user and stores the returned token.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SignupRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if err := s.Auth.Signup(r.Context(), req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"logged_in": true})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Auth.Logout(r.Context()); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"logged_in": false})
	}
}

// MeHandler returns the logged-in user, 401 when there is none.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.Auth.Me(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
