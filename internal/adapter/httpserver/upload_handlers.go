package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
)

type uploadView struct {
	Phase usecase.UploadPhase   `json:"phase"`
	Job   domain.UploadJobState `json:"job"`
}

func (s *Server) uploadView() uploadView {
	return uploadView{Phase: s.Uploads.Phase(), Job: s.Uploads.State()}
}

// UploadHandler accepts a multipart "zipfile" part and starts processing.
// Archive validation happens in the upload session, so a missing or
// non-ZIP file is answered with a rejected job state.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadBytes()
		// Headroom for the multipart envelope around the archive.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "INVALID_ARGUMENT",
					Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		var f usecase.UploadFile
		file, header, err := r.FormFile("zipfile")
		if err == nil {
			defer func() { _ = file.Close() }()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: zipfile read: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			f = usecase.UploadFile{Name: header.Filename, Data: data}
		}

		st := s.Uploads.Start(r.Context(), f)
		status := http.StatusOK
		if st.Status == domain.UploadProcessing {
			status = http.StatusAccepted
		}
		writeJSON(w, status, uploadView{Phase: s.Uploads.Phase(), Job: st})
	}
}

// CurrentUploadHandler returns the latest job state.
func (s *Server) CurrentUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeCached(w, r, s.uploadView())
	}
}

// CancelUploadHandler stops polling; the last status stays visible.
func (s *Server) CancelUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.Uploads.Cancel()
		writeJSON(w, http.StatusOK, s.uploadView())
	}
}
