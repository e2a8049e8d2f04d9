package domain

import (
	"context"
	"errors"
	"io"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrInternal            = errors.New("internal error")
)

// ResultStub is one ranked hit returned by the search endpoint.
type ResultStub struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// Profile is a hydrated candidate record. Score is not native to the
// backend record; it is copied (rounded) from the originating stub.
// Invariant: DocumentID is unique within a hydrated set.
type Profile struct {
	DocumentID      string   `json:"document_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	MobileNumber    *string  `json:"mobile_number,omitempty"`
	YearsExperience *float64 `json:"years_experience,omitempty"`
	Location        *string  `json:"location,omitempty"`
	Skills          []string `json:"skills"`
	PrevRoles       []string `json:"prev_roles"`
	Score           float64  `json:"score"`
}

// Experience returns years of experience, treating a missing value as zero.
func (p Profile) Experience() float64 {
	if p.YearsExperience == nil {
		return 0
	}
	return *p.YearsExperience
}

// SearchQuery is the user-editable query; it is frozen into the request
// payload at submission time.
type SearchQuery struct {
	JobDescription string   `json:"job_description" validate:"required"`
	RequiredSkills []string `json:"required_skills"`
	TopK           int      `json:"top_k" validate:"min=1"`
}

type SearchPhase string

const (
	SearchIdle    SearchPhase = "idle"
	SearchLoading SearchPhase = "loading"
	SearchLoaded  SearchPhase = "loaded"
	SearchFailed  SearchPhase = "failed"
)

// SearchState is the visible state of one query submission. A newer
// submission supersedes it; it is never mutated in place.
type SearchState struct {
	Seq      uint64       `json:"seq"`
	Phase    SearchPhase  `json:"phase"`
	Query    SearchQuery  `json:"query"`
	TopK     int          `json:"top_k"`
	Total    int          `json:"total"`
	Stubs    []ResultStub `json:"stubs"`
	Profiles []Profile    `json:"profiles"`
	Error    string       `json:"error,omitempty"`
}

type SortBy string

const (
	SortRelevance  SortBy = "relevance"
	SortExperience SortBy = "experience"
)

// FilterState is the client-side filter applied to hydrated profiles.
type FilterState struct {
	MinExperience  float64  `json:"min_experience" validate:"gte=0"`
	RequiredSkills []string `json:"required_skills"`
	SortBy         SortBy   `json:"sort_by" validate:"omitempty,oneof=relevance experience"`
}

// DefaultFilter is the filter every new search starts with.
func DefaultFilter() FilterState {
	return FilterState{SortBy: SortRelevance}
}

type UploadStatus string

const (
	UploadRejected            UploadStatus = "rejected"
	UploadUploading           UploadStatus = "uploading"
	UploadProcessing          UploadStatus = "processing"
	UploadCompleted           UploadStatus = "completed"
	UploadCompletedWithErrors UploadStatus = "completed_with_errors"
	UploadFailed              UploadStatus = "failed"
)

// Terminal reports whether polling must stop at this status.
func (s UploadStatus) Terminal() bool {
	switch s {
	case UploadCompleted, UploadCompletedWithErrors, UploadFailed, UploadRejected:
		return true
	}
	return false
}

// FailureKind tells apart the ways an upload can fail.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureValidation FailureKind = "validation"
	FailureSubmit     FailureKind = "submit"
	FailureTransport  FailureKind = "transport"
	FailureBackend    FailureKind = "backend"
)

// UploadJobState tracks one archive submission and its processing job.
type UploadJobState struct {
	JobID          string       `json:"job_id,omitempty"`
	FileName       string       `json:"file_name,omitempty"`
	TotalFiles     int          `json:"total_files"`
	ProcessedFiles int          `json:"processed_files"`
	Status         UploadStatus `json:"status"`
	Message        string       `json:"message"`
	Failure        FailureKind  `json:"failure,omitempty"`
}

// UploadReceipt is returned by the upload endpoint when a job was created.
type UploadReceipt struct {
	JobID      string `json:"job_id"`
	TotalFiles int    `json:"total_files"`
}

// UploadProgress is one status poll result.
type UploadProgress struct {
	ProcessedFiles int    `json:"processed_files"`
	TotalFiles     int    `json:"total_files"`
	Status         string `json:"status"`
}

// AuthUser is the record returned for the bearer of a token.
type AuthUser struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Number string `json:"number,omitempty"`
}

// SignupRequest carries the fields of the sign-up form.
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Number   string `json:"number" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AdminStatus summarizes the resume store of the backend.
type AdminStatus struct {
	ResumeCount  int    `json:"resume_count"`
	DBStatus     string `json:"db_status"`
	QdrantStatus string `json:"qdrant_status"`
}

// Ports

type SearchAPI interface {
	Search(ctx context.Context, jobDescription string, topK int) ([]ResultStub, error)
}

type ProfileAPI interface {
	GetProfile(ctx context.Context, documentID string) (Profile, error)
}

type UploadAPI interface {
	UploadResumes(ctx context.Context, fileName string, archive io.Reader) (UploadReceipt, error)
	UploadStatus(ctx context.Context, jobID string) (UploadProgress, error)
}

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, req SignupRequest) (string, error)
	Me(ctx context.Context, token string) (AuthUser, error)
}

type AdminAPI interface {
	AdminStatus(ctx context.Context) (AdminStatus, error)
	ClearResumes(ctx context.Context) error
}

// TokenStore persists the auth token between runs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenSource hands out the current bearer token, or "" when logged out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
