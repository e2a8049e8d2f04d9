package httpserver_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talentfinder/internal/adapter/httpserver"
	"github.com/fairyhunter13/talentfinder/internal/adapter/tokenstore"
	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/domain/mocks"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
)

type fixture struct {
	srv      *httpserver.Server
	router   http.Handler
	search   *mocks.MockSearchAPI
	profiles *mocks.MockProfileAPI
	uploads  *mocks.MockUploadAPI
	auth     *mocks.MockAuthAPI
	admin    *mocks.MockAdminAPI
	store    *tokenstore.FileStore
}

func newFixture(t *testing.T, checks ...httpserver.ReadyCheck) *fixture {
	t.Helper()
	cfg := config.Config{AppEnv: "test", MaxUploadMB: 1}
	f := &fixture{
		search:   &mocks.MockSearchAPI{},
		profiles: &mocks.MockProfileAPI{},
		uploads:  &mocks.MockUploadAPI{},
		auth:     &mocks.MockAuthAPI{},
		admin:    &mocks.MockAdminAPI{},
	}
	store, err := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.yaml"))
	require.NoError(t, err)
	f.store = store

	search := usecase.NewSearchSession(f.search, usecase.NewProfileFetcher(f.profiles, 0), usecase.SearchOptions{
		MinTopK: 1, MaxTopK: 50, DefaultTopK: 10, PageSize: 2, TopSkillLimit: 8,
	})
	uploads := usecase.NewUploadSession(f.uploads, 10*time.Millisecond)
	t.Cleanup(search.Close)
	t.Cleanup(uploads.Close)

	auth := usecase.NewAuthSession(f.auth, usecase.NewCredentials(store))
	f.srv = httpserver.NewServer(cfg, search, uploads, f.profiles, auth, usecase.NewAdminService(f.admin), checks...)
	f.router = routes(f.srv)
	return f
}

func routes(s *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.RequestID())
	r.Post("/v1/search", s.SubmitSearchHandler())
	r.Get("/v1/search", s.ResultsHandler())
	r.Put("/v1/search/filter", s.FilterHandler())
	r.Put("/v1/search/page", s.PageHandler())
	r.Get("/v1/search/dashboard", s.DashboardHandler())
	r.Get("/v1/search/export.xlsx", s.ExportHandler())
	r.Get("/v1/profiles/{id}", s.ProfileHandler())
	r.Post("/v1/uploads", s.UploadHandler())
	r.Get("/v1/uploads/current", s.CurrentUploadHandler())
	r.Delete("/v1/uploads/current", s.CancelUploadHandler())
	r.Get("/v1/admin/status", s.AdminStatusHandler())
	r.Delete("/v1/admin/resumes", s.ClearResumesHandler())
	r.Post("/v1/auth/login", s.LoginHandler())
	r.Post("/v1/auth/signup", s.SignupHandler())
	r.Post("/v1/auth/logout", s.LogoutHandler())
	r.Get("/v1/auth/me", s.MeHandler())
	r.Get("/healthz", s.HealthzHandler())
	r.Get("/readyz", s.ReadyzHandler())
	return r
}

func (f *fixture) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func (f *fixture) json(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	r := httptest.NewRequest(method, path, rd)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	return f.do(t, r)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func years(v float64) *float64 { return &v }

func sampleProfiles() map[string]domain.Profile {
	return map[string]domain.Profile{
		"a": {DocumentID: "a", Name: "Ada", Email: "ada@example.com", YearsExperience: years(5), Skills: []string{"Go", "SQL"}},
		"b": {DocumentID: "b", Name: "Bo", Email: "bo@example.com", YearsExperience: years(2), Skills: []string{"Go"}},
		"c": {DocumentID: "c", Name: "Cy", Email: "cy@example.com", YearsExperience: years(10), Skills: []string{"Python"}},
	}
}

// loadResults runs one search for "Go engineer" that yields a, b and c.
func (f *fixture) loadResults(t *testing.T) {
	t.Helper()
	f.search.On("Search", mock.Anything, "Go engineer", 10).Return([]domain.ResultStub{
		{DocumentID: "a", Score: 91.6},
		{DocumentID: "b", Score: 80.2},
		{DocumentID: "c", Score: 70},
	}, nil).Once()
	for id, p := range sampleProfiles() {
		f.profiles.On("GetProfile", mock.Anything, id).Return(p, nil)
	}
	rec := f.json(t, http.MethodPost, "/v1/search", map[string]any{"job_description": "Go engineer", "required_skills": []string{"go"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	f.srv.Search.Wait()
	require.Equal(t, domain.SearchLoaded, f.srv.Search.State().Phase)
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("cv.pdf")
	require.NoError(t, err)
	_, err = w.Write([]byte("%PDF-1.4 resume"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/v1/uploads", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}
