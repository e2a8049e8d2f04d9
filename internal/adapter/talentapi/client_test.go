package talentapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newTestClient(t *testing.T, h http.Handler, tokens domain.TokenSource) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cfg := config.Config{
		AppEnv:              "test",
		TalentAPIBaseURL:    ts.URL + "/",
		TalentAPITimeout:    2 * time.Second,
		TalentAPIMaxRetries: 2,
	}
	return New(cfg, tokens)
}

func TestSearch_SendsPayloadAndDecodesStubs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go developer", body["job_description"])
		assert.EqualValues(t, 3, body["top_k"])
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"document_id":"a","score":91.5},{"document_id":"b","score":80}]`))
	}), staticToken("tok"))

	stubs, err := c.Search(context.Background(), "go developer", 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.ResultStub{{DocumentID: "a", Score: 91.5}, {DocumentID: "b", Score: 80}}, stubs)
}

func TestSearch_NotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}), nil)

	_, err := c.Search(context.Background(), "jd", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSearch_SchemaInvalid(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"oops":true}`))
	}), nil)
	_, err := c.Search(context.Background(), "jd", 5)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestGetProfile_RetriesOn5xx(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/profile/doc%201", r.URL.EscapedPath())
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"document_id":"doc 1","name":"Ada Lovelace","email":"ada@example.com","years_experience":7,"skills":["Go"],"prev_roles":["Engineer"]}`))
	}), nil)

	p, err := c.GetProfile(context.Background(), "doc 1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, 7.0, p.Experience())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetProfile_NoRetryOn404(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Profile not found"}`))
	}), nil)

	_, err := c.GetProfile(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Profile not found", apiErr.Detail)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetProfile_FillsMissingID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Bo"}`))
	}), nil)
	p, err := c.GetProfile(context.Background(), "x1")
	require.NoError(t, err)
	assert.Equal(t, "x1", p.DocumentID)
}

func TestGetProfile_EmptyID(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), nil)
	_, err := c.GetProfile(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUploadResumes_MultipartField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload-resumes", r.URL.Path)
		f, hdr, err := r.FormFile("zipfile")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "resumes.zip", hdr.Filename)
		assert.Equal(t, "PK-data", string(b))
		_, _ = w.Write([]byte(`{"job_id":"job-1","total_files":4}`))
	}), nil)

	rec, err := c.UploadResumes(context.Background(), "resumes.zip", strings.NewReader("PK-data"))
	require.NoError(t, err)
	assert.Equal(t, domain.UploadReceipt{JobID: "job-1", TotalFiles: 4}, rec)
}

func TestUploadResumes_MissingJobID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"total_files":4}`))
	}), nil)
	_, err := c.UploadResumes(context.Background(), "a.zip", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestUploadStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload-status/job-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"processed_files":2,"total_files":4,"status":"processing"}`))
	}), nil)
	p, err := c.UploadStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UploadProgress{ProcessedFiles: 2, TotalFiles: 4, Status: "processing"}, p)
}

func TestLoginSignup(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Invalid email or password"}`))
				return
			}
			_, _ = w.Write([]byte(`{"token":"t1","message":"Login successful"}`))
		case "/auth/signup":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
		}
	}), nil)

	tok, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)

	_, err = c.Login(context.Background(), "a@b.c", "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid email or password")

	_, err = c.Signup(context.Background(), domain.SignupRequest{Name: "A", Email: "a@b.c", Number: "1", Password: "p"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Email already registered")
}

func TestLogin_NoToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}), nil)
	_, err := c.Login(context.Background(), "a@b.c", "p")
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestMe_UsesExplicitToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer explicit", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name":"Ada","email":"ada@example.com"}`))
	}), staticToken("stored"))

	u, err := c.Me(context.Background(), "explicit")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	_, err = c.Me(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAdminEndpoints(t *testing.T) {
	var cleared int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/admin/status":
			_, _ = w.Write([]byte(`{"resume_count":12,"db_status":"Online","qdrant_status":"Online"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/clear-resumes":
			atomic.AddInt32(&cleared, 1)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}), nil)

	st, err := c.AdminStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, st.ResumeCount)
	require.NoError(t, c.ClearResumes(context.Background()))
	assert.EqualValues(t, 1, atomic.LoadInt32(&cleared))
}

func TestTimeoutMapsToUpstreamTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()
	c := New(config.Config{AppEnv: "test", TalentAPIBaseURL: ts.URL, TalentAPITimeout: 50 * time.Millisecond}, nil)
	_, err := c.Search(context.Background(), "jd", 1)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestTransportErrorMapsToUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	c := New(config.Config{AppEnv: "test", TalentAPIBaseURL: url, TalentAPITimeout: time.Second}, nil)
	_, err := c.AdminStatus(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

type countingThrottle struct {
	calls int32
	err   error
}

func (c *countingThrottle) Wait(_ context.Context, key string) error {
	if key != ThrottleKey {
		return errors.New("unexpected key " + key)
	}
	atomic.AddInt32(&c.calls, 1)
	return c.err
}

func TestThrottle_WaitsBeforeEachAttempt(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"document_id":"a","name":"Ada","skills":[],"prev_roles":[]}`))
	}), nil)
	th := &countingThrottle{}
	c.WithThrottle(th)

	p, err := c.GetProfile(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
	assert.EqualValues(t, 2, atomic.LoadInt32(&th.calls))
}

func TestThrottle_CancelledWaitSkipsRequest(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
	}), nil)
	c.WithThrottle(&countingThrottle{err: context.DeadlineExceeded})

	_, err := c.GetProfile(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.Zero(t, atomic.LoadInt32(&hits))
}
