package talentapi

import (
	"errors"
	"testing"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

func TestAPIError_UnwrapsToSentinel(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{400, domain.ErrInvalidArgument},
		{422, domain.ErrInvalidArgument},
		{401, domain.ErrUnauthorized},
		{403, domain.ErrUnauthorized},
		{404, domain.ErrNotFound},
		{409, domain.ErrConflict},
		{429, domain.ErrRateLimited},
		{504, domain.ErrUpstreamTimeout},
		{500, domain.ErrUpstreamUnavailable},
		{418, domain.ErrInternal},
	}
	for _, tc := range cases {
		err := error(&APIError{StatusCode: tc.status})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: want %v", tc.status, tc.want)
		}
	}
}

func TestNewAPIError_Detail(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Email already registered"}`, "Email already registered"},
		{"message", `{"message":"bad"}`, "bad"},
		{"validation list", `{"detail":[{"msg":"field required"},{"msg":"not an email"}]}`, "field required; not an email"},
		{"plain text", "  upstream exploded ", "upstream exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := newAPIError(400, []byte(tc.body))
			if got.Detail != tc.want {
				t.Fatalf("got %q want %q", got.Detail, tc.want)
			}
		})
	}
}

func TestAPIError_Retryable(t *testing.T) {
	if !(&APIError{StatusCode: 503}).Retryable() || !(&APIError{StatusCode: 429}).Retryable() {
		t.Fatal("5xx and 429 must be retryable")
	}
	if (&APIError{StatusCode: 404}).Retryable() {
		t.Fatal("404 must not be retryable")
	}
}
