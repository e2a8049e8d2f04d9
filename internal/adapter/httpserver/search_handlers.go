package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/talentfinder/internal/adapter/export"
	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/projection"
)

// searchRequest leaves an empty job description to the session, which
// reports it as a failed search rather than a 400.
type searchRequest struct {
	JobDescription string   `json:"job_description" validate:"max=20000"`
	RequiredSkills []string `json:"required_skills" validate:"max=50,dive,max=100"`
	TopK           int      `json:"top_k"`
}

// SubmitSearchHandler starts a new search. The response is the first state
// of the submission: 202 while loading, 200 when it failed validation.
func (s *Server) SubmitSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		var req searchRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		st := s.Search.Submit(r.Context(), domain.SearchQuery{
			JobDescription: req.JobDescription,
			RequiredSkills: req.RequiredSkills,
			TopK:           req.TopK,
		})
		status := http.StatusOK
		if st.Phase == domain.SearchLoading {
			status = http.StatusAccepted
		}
		writeJSON(w, status, st)
	}
}

// ResultsHandler returns a grid page with ETag support. ?page= picks the
// page for this response only; the selected page is changed by PUT.
func (s *Server) ResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		raw := r.URL.Query().Get("page")
		if raw == "" {
			writeCached(w, r, s.Search.View())
			return
		}
		page, vr := ParsePage(raw)
		if !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: page", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		writeCached(w, r, s.Search.ViewPage(page))
	}
}

type pageRequest struct {
	Page int `json:"page" validate:"min=1"`
}

// PageHandler selects the grid page and returns it.
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		s.Search.SetPage(req.Page)
		writeJSON(w, http.StatusOK, s.Search.View())
	}
}

// FilterHandler replaces the filter and returns the first page.
func (s *Server) FilterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.FilterState
		if !decodeRequest(w, r, &f) {
			return
		}
		if err := s.Search.SetFilter(f); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, s.Search.View())
	}
}

// DashboardHandler projects the current results for the dashboard screen.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		selected := r.URL.Query().Get("selected")
		if selected != "" {
			if vr := ValidateID("selected", selected); !vr.Valid {
				writeError(w, r, fmt.Errorf("%w: selected", domain.ErrInvalidArgument), vr.Errors)
				return
			}
		}
		d, err := s.Search.Dashboard(selected)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeCached(w, r, d)
	}
}

// ExportHandler streams the filtered table as an XLSX workbook.
func (s *Server) ExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.Search.State()
		if st.Phase != domain.SearchLoaded {
			writeError(w, r, fmt.Errorf("%w: no loaded results to export", domain.ErrConflict), map[string]string{"phase": string(st.Phase)})
			return
		}
		rows := projection.Table(s.Search.FilteredProfiles())
		now := s.now()
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="candidates-%s.xlsx"`, now.Format("20060102-150405")))
		err := export.WriteResultsXLSX(w, rows, export.ReportMeta{
			JobDescription: st.Query.JobDescription,
			RequiredSkills: st.Query.RequiredSkills,
			GeneratedAt:    now,
		})
		if err != nil {
			LoggerFrom(r).Error("xlsx export failed", "error", err.Error())
		}
	}
}

// ProfileHandler fetches one profile for the detail page. The score of the
// current result set is attached when the profile is part of it.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		p, err := s.Profiles.GetProfile(r.Context(), id)
		if err != nil {
			writeError(w, r, fmt.Errorf("op=httpserver.Profile: %w", err), nil)
			return
		}
		if known, ok := projection.FindProfile(s.Search.State().Profiles, id); ok {
			p.Score = known.Score
		}
		writeCached(w, r, p)
	}
}
