package talentapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// APIError is a non-2xx response from the talent API. It unwraps to the
// domain sentinel matching its status code.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("talent api status %d", e.StatusCode)
	}
	return fmt.Sprintf("talent api status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return domain.ErrInvalidArgument
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return domain.ErrConflict
	case e.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusGatewayTimeout:
		return domain.ErrUpstreamTimeout
	case e.StatusCode >= 500:
		return domain.ErrUpstreamUnavailable
	}
	return domain.ErrInternal
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// newAPIError extracts the error text from bodies shaped like
// {"detail": "..."} or {"message": "..."}. Validation errors may carry a
// list under detail; those are flattened.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		detail = detailText(payload.Detail)
		if detail == "" {
			detail = payload.Message
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(snippet(body, 256))
	}
	return &APIError{StatusCode: status, Detail: detail}
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
