// Package talentapi is the HTTP client for the external talent-finder service.
package talentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// Client implements the domain API ports against the talent-finder service.
type Client struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
	retry   config.APIRetryConfig
	tokens  domain.TokenSource

	throttle Throttle
	breaker  *Breaker
}

// ThrottleKey names the shared budget of outbound calls.
const ThrottleKey = "talent_api"

// Throttle delays calls until the shared budget allows them.
type Throttle interface {
	Wait(ctx context.Context, key string) error
}

// WithThrottle makes every attempt wait on t first.
func (c *Client) WithThrottle(t Throttle) *Client {
	c.throttle = t
	return c
}

var (
	_ domain.SearchAPI  = (*Client)(nil)
	_ domain.ProfileAPI = (*Client)(nil)
	_ domain.UploadAPI  = (*Client)(nil)
	_ domain.AuthAPI    = (*Client)(nil)
	_ domain.AdminAPI   = (*Client)(nil)
)

// New builds a client. tokens may be nil, in which case no Authorization
// header is sent except where a token is passed explicitly.
func New(cfg config.Config, tokens domain.TokenSource) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("TalentAPI %s %s", r.Method, r.URL.Path)
		}),
	)
	return &Client{
		baseURL: strings.TrimRight(cfg.TalentAPIBaseURL, "/"),
		hc:      &http.Client{Transport: transport},
		timeout: cfg.TalentAPITimeout,
		retry:   cfg.GetAPIRetryConfig(),
		tokens:  tokens,
		breaker: NewBreaker(cfg.TalentAPIBreakerFailures, cfg.TalentAPIBreakerCooldown),
	}
}

// request describes one call. body is rebuilt for every attempt.
type request struct {
	endpoint string
	method   string
	path     string
	body     func() (io.Reader, string, error)
	token    string
	retry    bool
}

func jsonBody(v any) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

func (c *Client) backoffConfig() backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retry.InitialInterval
	expo.MaxInterval = c.retry.MaxInterval
	expo.Multiplier = c.retry.Multiplier
	expo.MaxElapsedTime = 0
	retries := c.retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(expo, uint64(retries))
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	token := req.token
	if token == "" && c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("op=talentapi.%s: token: %w", req.endpoint, err)
		}
		token = t
	}
	lg := observability.LoggerFromContext(ctx)

	attempt := 0
	op := func() error {
		attempt++
		if c.throttle != nil {
			if err := c.throttle.Wait(ctx, ThrottleKey); err != nil {
				return backoff.Permanent(transportError(ctx, err))
			}
		}
		if !c.breaker.Allow() {
			return backoff.Permanent(fmt.Errorf("%w: circuit open", domain.ErrUpstreamUnavailable))
		}
		var body io.Reader
		contentType := ""
		if req.body != nil {
			var err error
			body, contentType, err = req.body()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("%w: encode request: %v", domain.ErrInvalidArgument, err))
			}
		}
		r, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		}
		r.Header.Set("Accept", "application/json")
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		if rid := observability.RequestIDFromContext(ctx); rid != "" {
			r.Header.Set("X-Request-Id", rid)
		}

		start := time.Now()
		resp, err := c.hc.Do(r)
		if err != nil {
			observability.ObserveTalentAPI(req.endpoint, 0, time.Since(start))
			lg.Warn("talent api transport error",
				slog.String("endpoint", req.endpoint),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			if !errors.Is(ctx.Err(), context.Canceled) {
				c.breaker.Record(true)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(transportError(ctx, err))
			}
			return transportError(ctx, err)
		}
		defer func() { _ = resp.Body.Close() }()
		observability.ObserveTalentAPI(req.endpoint, resp.StatusCode, time.Since(start))

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			c.breaker.Record(true)
			return transportError(ctx, err)
		}
		c.breaker.Record(resp.StatusCode >= 500)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := newAPIError(resp.StatusCode, b)
			lg.Warn("talent api non-2xx",
				slog.String("endpoint", req.endpoint),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt),
				slog.String("detail", apiErr.Detail))
			if apiErr.Retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil || len(bytes.TrimSpace(b)) == 0 {
			return nil
		}
		if err := json.Unmarshal(b, out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: decode %s: %v", domain.ErrSchemaInvalid, req.endpoint, err))
		}
		return nil
	}

	var err error
	if req.retry {
		err = backoff.Retry(op, backoff.WithContext(c.backoffConfig(), ctx))
	} else {
		err = op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}
	if err != nil {
		return fmt.Errorf("op=talentapi.%s: %w", req.endpoint, err)
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}

// Search posts the job description and returns the ranked stubs.
func (c *Client) Search(ctx context.Context, jobDescription string, topK int) ([]domain.ResultStub, error) {
	payload := map[string]any{"job_description": jobDescription, "top_k": topK}
	var out []domain.ResultStub
	if err := c.do(ctx, request{endpoint: "search", method: http.MethodPost, path: "/search", body: jsonBody(payload)}, &out); err != nil {
		return nil, err
	}
	for i, s := range out {
		if s.DocumentID == "" {
			return nil, fmt.Errorf("op=talentapi.search: %w: result %d has no document_id", domain.ErrSchemaInvalid, i)
		}
	}
	return out, nil
}

// GetProfile fetches one candidate record.
func (c *Client) GetProfile(ctx context.Context, documentID string) (domain.Profile, error) {
	if strings.TrimSpace(documentID) == "" {
		return domain.Profile{}, fmt.Errorf("op=talentapi.profile: %w: empty document id", domain.ErrInvalidArgument)
	}
	var p domain.Profile
	err := c.do(ctx, request{endpoint: "profile", method: http.MethodGet, path: "/profile/" + url.PathEscape(documentID), retry: true}, &p)
	if err != nil {
		return domain.Profile{}, err
	}
	if p.DocumentID == "" {
		p.DocumentID = documentID
	}
	return p, nil
}

// UploadResumes posts the archive as the multipart field "zipfile".
func (c *Client) UploadResumes(ctx context.Context, fileName string, archive io.Reader) (domain.UploadReceipt, error) {
	data, err := io.ReadAll(archive)
	if err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("op=talentapi.upload: read archive: %w", err)
	}
	body := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("zipfile", fileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, "", err
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil
	}
	var out domain.UploadReceipt
	if err := c.do(ctx, request{endpoint: "upload", method: http.MethodPost, path: "/upload-resumes", body: body}, &out); err != nil {
		return domain.UploadReceipt{}, err
	}
	if out.JobID == "" {
		return domain.UploadReceipt{}, fmt.Errorf("op=talentapi.upload: %w: missing job_id", domain.ErrSchemaInvalid)
	}
	return out, nil
}

// UploadStatus polls the processing job.
func (c *Client) UploadStatus(ctx context.Context, jobID string) (domain.UploadProgress, error) {
	var out domain.UploadProgress
	err := c.do(ctx, request{endpoint: "upload_status", method: http.MethodGet, path: "/upload-status/" + url.PathEscape(jobID), retry: true}, &out)
	if err != nil {
		return domain.UploadProgress{}, err
	}
	return out, nil
}

type tokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	var out tokenResponse
	if err := c.do(ctx, request{endpoint: "login", method: http.MethodPost, path: "/auth/login", body: jsonBody(payload)}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("op=talentapi.login: %w: no token in response", domain.ErrSchemaInvalid)
	}
	return out.Token, nil
}

// Signup registers a user and returns its token.
func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, request{endpoint: "signup", method: http.MethodPost, path: "/auth/signup", body: jsonBody(req)}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("op=talentapi.signup: %w: no token in response", domain.ErrSchemaInvalid)
	}
	return out.Token, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (domain.AuthUser, error) {
	if token == "" {
		return domain.AuthUser{}, fmt.Errorf("op=talentapi.me: %w", domain.ErrUnauthorized)
	}
	var out domain.AuthUser
	if err := c.do(ctx, request{endpoint: "me", method: http.MethodGet, path: "/auth/me", token: token, retry: true}, &out); err != nil {
		return domain.AuthUser{}, err
	}
	return out, nil
}

// AdminStatus reads resume count and store health.
func (c *Client) AdminStatus(ctx context.Context) (domain.AdminStatus, error) {
	var out domain.AdminStatus
	if err := c.do(ctx, request{endpoint: "admin_status", method: http.MethodGet, path: "/admin/status", retry: true}, &out); err != nil {
		return domain.AdminStatus{}, err
	}
	return out, nil
}

// ClearResumes deletes every stored resume.
func (c *Client) ClearResumes(ctx context.Context) error {
	return c.do(ctx, request{endpoint: "clear_resumes", method: http.MethodDelete, path: "/clear-resumes"}, nil)
}

// Ping checks that the service answers at all.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{endpoint: "ping", method: http.MethodGet, path: "/"}, nil)
}
