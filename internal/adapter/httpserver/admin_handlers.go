package httpserver

import (
	"net/http"
)

// AdminStatusHandler always answers 200; an unreachable backend shows up as
// offline stores.
func (s *Server) AdminStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Admin.Status(r.Context())
		body := map[string]any{"status": st}
		if err != nil {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// ClearResumesHandler deletes every stored resume.
func (s *Server) ClearResumesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Admin.ClearResumes(r.Context())
		if err != nil && st.DBStatus == "" {
			writeError(w, r, err, nil)
			return
		}
		body := map[string]any{"cleared": true, "status": st}
		if err != nil {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusOK, body)
	}
}
