package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// getValidator reports fields by their JSON names.
func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// decodeRequest decodes the JSON body into v and checks its validate tags.
// On failure it writes a 400 with per-field details and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		writeError(w, r, err, nil)
		return false
	}
	err := getValidator().Struct(v)
	if err == nil {
		return true
	}
	res := ValidationResult{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			res.Errors = append(res.Errors, ValidationError{
				Field:   fe.Field(),
				Code:    strings.ToUpper(fe.Tag()),
				Message: fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()),
			})
		}
	}
	writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), res.Errors)
	return false
}

const maxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

func invalid(field, code, msg string) ValidationResult {
	return ValidationResult{Errors: []ValidationError{{Field: field, Code: code, Message: msg}}}
}

// ValidateID validates a document or job id taken from the URL.
func ValidateID(field, id string) ValidationResult {
	if id == "" {
		return invalid(field, "REQUIRED", field+" is required")
	}
	if len(id) > maxIDLength {
		return invalid(field, "TOO_LONG", field+" is too long (max 128 characters)")
	}
	if !idPattern.MatchString(id) {
		return invalid(field, "INVALID_FORMAT", field+" contains invalid characters")
	}
	return ValidationResult{Valid: true}
}

// ParsePage reads the page query parameter; empty means page 1.
func ParsePage(raw string) (int, ValidationResult) {
	if raw == "" {
		return 1, ValidationResult{Valid: true}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, invalid("page", "INVALID_FORMAT", "Page must be a positive integer")
	}
	return n, ValidationResult{Valid: true}
}

// SanitizeString strips NUL bytes and invalid UTF-8, trims and caps the input.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	if len(input) > 1000 {
		input = input[:1000]
	}
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}
