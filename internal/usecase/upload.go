package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// User-facing upload messages.
const (
	MsgNoFile             = "Please select a ZIP file first."
	MsgNotZip             = "Only .zip files are accepted."
	MsgInvalidArchive     = "The selected file is not a valid ZIP archive."
	MsgUploading          = "Uploading..."
	MsgProcessing         = "Processing... This may take a moment."
	MsgCompleted          = "Processing complete! All new resumes were added."
	MsgCompletedWithError = "Finished. Some resumes were skipped (duplicates or errors)."
	MsgProcessingFailed   = "A critical error occurred during processing."
	MsgStatusUnavailable  = "Could not get processing status. Check server logs."
	MsgUploadFailed       = "Upload failed. The server may be down or the file is invalid."
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 2 * time.Second

// UploadFile is an archive chosen by the user.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadSession submits resume archives and follows their processing job.
// At most one poll loop runs at a time; starting a new upload stops the
// previous loop first.
type UploadSession struct {
	id       string
	api      domain.UploadAPI
	interval time.Duration

	mu    sync.Mutex
	gen   uint64
	phase UploadPhase
	state domain.UploadJobState
	// cancel stops the in-flight submission or the poll loop; done is
	// closed when the poll loop exits and is nil during a submission.
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
	onChange func(domain.UploadJobState)
	version  uint64

	notifyMu  sync.Mutex
	delivered uint64
}

func NewUploadSession(api domain.UploadAPI, interval time.Duration) *UploadSession {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &UploadSession{
		id:       uuid.NewString(),
		api:      api,
		interval: interval,
		phase:    UploadIdle,
	}
}

// OnChange registers fn to receive committed states. Deliveries never go
// backwards. fn may read the session but must not start or cancel uploads.
func (s *UploadSession) OnChange(fn func(domain.UploadJobState)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// validateArchive reports the rejection message for f, or "".
func validateArchive(f UploadFile) string {
	if strings.TrimSpace(f.Name) == "" {
		return MsgNoFile
	}
	if !strings.EqualFold(filepath.Ext(f.Name), ".zip") {
		return MsgNotZip
	}
	for m := mimetype.Detect(f.Data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return ""
		}
	}
	return MsgInvalidArchive
}

// Start validates and submits the archive, then begins polling. It returns
// the state after submission: rejected, failed or processing.
func (s *UploadSession) Start(ctx context.Context, f UploadFile) domain.UploadJobState {
	lg := observability.LoggerFromContext(ctx).With(slog.String("session_id", s.id))
	ctx, span := otel.Tracer("usecase.upload").Start(ctx, "UploadSession.Start")
	defer span.End()
	submitCtx, submitCancel := context.WithCancel(ctx)
	defer submitCancel()

	s.mu.Lock()
	if s.closed {
		st := s.state
		s.mu.Unlock()
		return st
	}
	prev := s.detachLocked()
	s.gen++
	gen := s.gen
	s.cancel = submitCancel
	s.mu.Unlock()
	prev.stop()
	defer func() {
		s.mu.Lock()
		if gen == s.gen && s.done == nil {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	if msg := validateArchive(f); msg != "" {
		st := domain.UploadJobState{FileName: f.Name, Status: domain.UploadRejected, Message: msg, Failure: domain.FailureValidation}
		s.commit(gen, st, UploadTerminal)
		observability.FinishUpload(string(domain.UploadRejected), false)
		lg.Info("upload rejected", slog.String("file", f.Name), slog.String("reason", msg))
		return st
	}

	st := domain.UploadJobState{FileName: f.Name, Status: domain.UploadUploading, Message: MsgUploading}
	s.commit(gen, st, UploadIdle)

	receipt, err := s.api.UploadResumes(submitCtx, f.Name, bytes.NewReader(f.Data))
	if err != nil {
		span.RecordError(err)
		if submitCtx.Err() != nil && ctx.Err() == nil {
			// Cancelled by Cancel, Close or a newer Start.
			observability.FinishUpload("cancelled", false)
			return s.State()
		}
		lg.Warn("upload submission failed", slog.String("file", f.Name), slog.Any("error", err))
		st.Status = domain.UploadFailed
		st.Message = MsgUploadFailed
		st.Failure = domain.FailureSubmit
		if s.commit(gen, st, UploadTerminal) {
			observability.FinishUpload(string(domain.UploadFailed), false)
		}
		return st
	}
	span.SetAttributes(attribute.String("upload.job_id", receipt.JobID))

	st.JobID = receipt.JobID
	st.TotalFiles = receipt.TotalFiles
	st.Status = domain.UploadProcessing
	st.Message = MsgProcessing

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx = observability.ContextWithLogger(loopCtx, lg.With(slog.String("job_id", receipt.JobID)))
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed || gen != s.gen {
		st = s.state
		s.mu.Unlock()
		cancel()
		observability.FinishUpload("cancelled", false)
		return st
	}
	s.cancel = cancel
	s.done = done
	if !s.setLocked(st, UploadPolling) {
		cancel()
		close(done)
		return st
	}
	observability.StartUploadPolling()
	lg.Info("upload accepted; polling", slog.String("job_id", receipt.JobID), slog.Int("total_files", receipt.TotalFiles))

	go s.loop(loopCtx, gen, st, done)
	return st
}

func (s *UploadSession) loop(ctx context.Context, gen uint64, st domain.UploadJobState, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next, finished := s.poll(ctx, st)
			if ctx.Err() != nil {
				return
			}
			phase := UploadPolling
			if finished {
				phase = UploadTerminal
			}
			if !s.commit(gen, next, phase) {
				return
			}
			if finished {
				observability.FinishUpload(string(next.Status), true)
				return
			}
			st = next
		}
	}
}

// poll fetches the job status once and maps it onto the job state. The
// second result is true when polling must stop.
func (s *UploadSession) poll(ctx context.Context, st domain.UploadJobState) (domain.UploadJobState, bool) {
	lg := observability.LoggerFromContext(ctx)
	prog, err := s.api.UploadStatus(ctx, st.JobID)
	if err != nil {
		observability.RecordUploadPoll("error")
		if ctx.Err() == nil {
			lg.Warn("upload status poll failed", slog.Any("error", err))
		}
		st.Status = domain.UploadFailed
		st.Message = MsgStatusUnavailable
		st.Failure = domain.FailureTransport
		return st, true
	}
	observability.RecordUploadPoll("ok")
	st.ProcessedFiles = prog.ProcessedFiles
	st.TotalFiles = prog.TotalFiles

	switch domain.UploadStatus(prog.Status) {
	case domain.UploadProcessing:
		return st, false
	case domain.UploadCompleted:
		st.Status = domain.UploadCompleted
		st.Message = MsgCompleted
	case domain.UploadCompletedWithErrors:
		st.Status = domain.UploadCompletedWithErrors
		st.Message = MsgCompletedWithError
	case domain.UploadFailed:
		st.Status = domain.UploadFailed
		st.Message = MsgProcessingFailed
		st.Failure = domain.FailureBackend
	default:
		st.Status = domain.UploadFailed
		st.Message = fmt.Sprintf("Processing ended with unexpected status %q.", prog.Status)
		st.Failure = domain.FailureBackend
	}
	lg.Info("upload finished", slog.String("status", string(st.Status)),
		slog.Int("processed_files", st.ProcessedFiles), slog.Int("total_files", st.TotalFiles))
	return st, true
}

// commit stores st if gen is still the current generation.
func (s *UploadSession) commit(gen uint64, st domain.UploadJobState, phase UploadPhase) bool {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return false
	}
	return s.setLocked(st, phase)
}

// setLocked applies a transition and notifies the observer. Called with
// s.mu held; releases it.
func (s *UploadSession) setLocked(st domain.UploadJobState, phase UploadPhase) bool {
	if err := checkUploadTransition(s.phase, phase); err != nil {
		s.mu.Unlock()
		slog.Error("upload state rejected", slog.String("session_id", s.id), slog.Any("error", err))
		return false
	}
	s.phase = phase
	s.state = st
	s.version++
	v, fn := s.version, s.onChange
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v <= s.delivered {
		return true
	}
	s.delivered = v
	if fn != nil {
		fn(st)
	}
	return true
}

// detached is work taken away from the session that still has to be
// stopped outside s.mu.
type detached struct {
	cancel     context.CancelFunc
	done       chan struct{}
	wasPolling bool
}

// detachLocked takes the in-flight submission or poll loop away from the
// session and invalidates its generation. The last status stays visible.
// Called with s.mu held.
func (s *UploadSession) detachLocked() detached {
	d := detached{cancel: s.cancel, done: s.done, wasPolling: s.phase == UploadPolling}
	s.cancel, s.done = nil, nil
	if d.cancel != nil || d.wasPolling {
		s.gen++
	}
	if d.wasPolling {
		s.phase = UploadIdle
	}
	return d
}

// stop cancels the detached work and waits for a poll loop to exit. A
// submission is not waited for; its late result fails the generation check.
func (d detached) stop() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.done != nil {
		<-d.done
	}
	if d.wasPolling {
		observability.FinishUpload("cancelled", true)
	}
}

// Cancel stops the submission or polling without a terminal status.
func (s *UploadSession) Cancel() {
	s.mu.Lock()
	d := s.detachLocked()
	s.mu.Unlock()
	d.stop()
}

// Close cancels the submission or polling; nothing is committed afterwards.
func (s *UploadSession) Close() {
	s.mu.Lock()
	d := s.detachLocked()
	s.closed = true
	s.mu.Unlock()
	d.stop()
}

func (s *UploadSession) State() domain.UploadJobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *UploadSession) Phase() UploadPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Wait blocks until the current poll loop, if any, has exited.
func (s *UploadSession) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
