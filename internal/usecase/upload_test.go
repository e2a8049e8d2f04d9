package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
)

const testPoll = 5 * time.Millisecond

func newUploadSession(t *testing.T, api domain.UploadAPI) *usecase.UploadSession {
	t.Helper()
	s := usecase.NewUploadSession(api, testPoll)
	t.Cleanup(s.Close)
	return s
}

func TestUploadStart_Rejections(t *testing.T) {
	api := newUploadAPI()
	s := newUploadSession(t, api)

	cases := []struct {
		name string
		file usecase.UploadFile
		msg  string
	}{
		{"no file", usecase.UploadFile{}, usecase.MsgNoFile},
		{"wrong extension", usecase.UploadFile{Name: "resumes.tar.gz", Data: zipBytes(t)}, usecase.MsgNotZip},
		{"zip name but not a zip", usecase.UploadFile{Name: "resumes.zip", Data: []byte("just text")}, usecase.MsgInvalidArchive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := s.Start(context.Background(), tc.file)
			assert.Equal(t, domain.UploadRejected, st.Status)
			assert.Equal(t, tc.msg, st.Message)
			assert.Equal(t, domain.FailureValidation, st.Failure)
			assert.Equal(t, usecase.UploadTerminal, s.Phase())
		})
	}
	assert.Equal(t, 0, api.uploadCount())
}

func TestUploadStart_UppercaseExtensionAccepted(t *testing.T) {
	api := newUploadAPI()
	api.job("RESUMES.ZIP", "job-1", 1, progress(1, 1, "completed"))
	s := newUploadSession(t, api)

	st := s.Start(context.Background(), usecase.UploadFile{Name: "RESUMES.ZIP", Data: zipBytes(t)})
	assert.Equal(t, domain.UploadProcessing, st.Status)
	s.Wait()
	assert.Equal(t, domain.UploadCompleted, s.State().Status)
}

func TestUploadStart_SubmitFailure(t *testing.T) {
	api := newUploadAPI()
	api.uploadErr = domain.ErrUpstreamUnavailable
	s := newUploadSession(t, api)
	rec := &recorder[domain.UploadJobState]{}
	s.OnChange(rec.add)

	st := s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
	assert.Equal(t, domain.UploadFailed, st.Status)
	assert.Equal(t, domain.FailureSubmit, st.Failure)
	assert.Equal(t, usecase.MsgUploadFailed, st.Message)
	assert.Equal(t, usecase.UploadTerminal, s.Phase())

	states := rec.all()
	require.Len(t, states, 2)
	assert.Equal(t, domain.UploadUploading, states[0].Status)
	assert.Equal(t, usecase.MsgUploading, states[0].Message)
}

func TestUpload_TerminalStatuses(t *testing.T) {
	cases := []struct {
		name    string
		final   string
		status  domain.UploadStatus
		msg     string
		failure domain.FailureKind
	}{
		{"completed", "completed", domain.UploadCompleted, usecase.MsgCompleted, domain.FailureNone},
		{"with errors", "completed_with_errors", domain.UploadCompletedWithErrors, usecase.MsgCompletedWithError, domain.FailureNone},
		{"backend failure", "failed", domain.UploadFailed, usecase.MsgProcessingFailed, domain.FailureBackend},
		{"unknown status", "exploded", domain.UploadFailed, `Processing ended with unexpected status "exploded".`, domain.FailureBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newUploadAPI()
			api.job("a.zip", "job-1", 3, progress(1, 3, "processing"), progress(2, 3, "processing"), progress(3, 3, tc.final))
			s := newUploadSession(t, api)
			rec := &recorder[domain.UploadJobState]{}
			s.OnChange(rec.add)

			st := s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
			assert.Equal(t, domain.UploadProcessing, st.Status)
			assert.Equal(t, usecase.MsgProcessing, st.Message)
			assert.Equal(t, "job-1", st.JobID)
			assert.Equal(t, 3, st.TotalFiles)

			s.Wait()
			final := s.State()
			assert.Equal(t, tc.status, final.Status)
			assert.Equal(t, tc.msg, final.Message)
			assert.Equal(t, tc.failure, final.Failure)
			assert.Equal(t, 3, final.ProcessedFiles)
			assert.Equal(t, usecase.UploadTerminal, s.Phase())

			polls := api.pollCount("job-1")
			assert.Equal(t, 3, polls)
			time.Sleep(4 * testPoll)
			assert.Equal(t, polls, api.pollCount("job-1"), "polling continued after terminal status")

			states := rec.all()
			assert.Equal(t, tc.status, states[len(states)-1].Status)
		})
	}
}

func TestUpload_PollTransportFailure(t *testing.T) {
	api := newUploadAPI()
	api.job("a.zip", "job-1", 2, progress(1, 2, "processing"), pollResult{err: domain.ErrUpstreamUnavailable})
	s := newUploadSession(t, api)

	s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
	s.Wait()

	st := s.State()
	assert.Equal(t, domain.UploadFailed, st.Status)
	assert.Equal(t, domain.FailureTransport, st.Failure)
	assert.Equal(t, usecase.MsgStatusUnavailable, st.Message)
	assert.NotEqual(t, usecase.MsgProcessingFailed, st.Message)
	assert.Equal(t, 1, st.ProcessedFiles)
}

func TestUpload_CancelKeepsLastStatus(t *testing.T) {
	api := newUploadAPI()
	api.job("a.zip", "job-1", 5, progress(2, 5, "processing"))
	s := newUploadSession(t, api)

	s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
	require.Eventually(t, func() bool { return api.pollCount("job-1") >= 2 }, time.Second, testPoll)

	s.Cancel()
	assert.Equal(t, usecase.UploadIdle, s.Phase())
	st := s.State()
	assert.Equal(t, domain.UploadProcessing, st.Status)
	assert.Equal(t, 2, st.ProcessedFiles)

	polls := api.pollCount("job-1")
	time.Sleep(5 * testPoll)
	assert.Equal(t, polls, api.pollCount("job-1"))
	assert.Equal(t, st, s.State())
}

func TestUpload_NewStartSupersedesOldLoop(t *testing.T) {
	api := newUploadAPI()
	api.job("first.zip", "job-1", 9, progress(1, 9, "processing"))
	api.job("second.zip", "job-2", 1, progress(0, 1, "processing"), progress(1, 1, "completed"))
	s := newUploadSession(t, api)
	rec := &recorder[domain.UploadJobState]{}
	s.OnChange(rec.add)

	s.Start(context.Background(), usecase.UploadFile{Name: "first.zip", Data: zipBytes(t)})
	require.Eventually(t, func() bool { return api.pollCount("job-1") >= 1 }, time.Second, testPoll)

	s.Start(context.Background(), usecase.UploadFile{Name: "second.zip", Data: zipBytes(t)})
	firstPolls := api.pollCount("job-1")
	s.Wait()

	assert.Equal(t, "job-2", s.State().JobID)
	assert.Equal(t, domain.UploadCompleted, s.State().Status)
	assert.Equal(t, firstPolls, api.pollCount("job-1"))

	states := rec.all()
	secondStarted := false
	for _, st := range states {
		if st.FileName == "second.zip" {
			secondStarted = true
			continue
		}
		assert.False(t, secondStarted, "state of the first upload delivered after the second started: %+v", st)
	}
}

func TestUpload_CloseStopsCommits(t *testing.T) {
	api := newUploadAPI()
	api.job("a.zip", "job-1", 5, progress(1, 5, "processing"))
	s := usecase.NewUploadSession(api, testPoll)

	s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
	s.Close()
	before := s.State()

	st := s.Start(context.Background(), usecase.UploadFile{Name: "b.zip", Data: zipBytes(t)})
	assert.Equal(t, before, st)
	assert.Equal(t, 1, api.uploadCount())
}

func TestUploadPhase_InitialIdle(t *testing.T) {
	s := newUploadSession(t, newUploadAPI())
	assert.Equal(t, usecase.UploadIdle, s.Phase())
	s.Wait()
	s.Cancel()
	assert.Equal(t, usecase.UploadIdle, s.Phase())
}

func TestUpload_CancelDoesNotWaitForSubmission(t *testing.T) {
	tests := []struct {
		name     string
		teardown func(*usecase.UploadSession)
	}{
		{"cancel", (*usecase.UploadSession).Cancel},
		{"close", (*usecase.UploadSession).Close},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newUploadAPI()
			api.job("a.zip", "job-1", 3, progress(1, 3, "processing"))
			api.gate = make(chan struct{})
			s := newUploadSession(t, api)

			started := make(chan domain.UploadJobState, 1)
			go func() {
				started <- s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
			}()
			require.Eventually(t, func() bool { return s.State().Status == domain.UploadUploading }, time.Second, time.Millisecond)

			returned := make(chan struct{})
			go func() {
				tt.teardown(s)
				close(returned)
			}()
			select {
			case <-returned:
			case <-time.After(time.Second):
				close(api.gate)
				t.Fatal("teardown waited for the in-flight submission")
			}

			// The receipt arrives after teardown and must be discarded.
			close(api.gate)
			st := <-started
			assert.Equal(t, domain.UploadUploading, st.Status)
			assert.Equal(t, usecase.UploadIdle, s.Phase())
			assert.Equal(t, domain.UploadUploading, s.State().Status)
			time.Sleep(5 * testPoll)
			assert.Zero(t, api.pollCount("job-1"))
		})
	}
}

func TestUpload_SlowPollsNeverOverlap(t *testing.T) {
	api := newUploadAPI()
	api.job("a.zip", "job-1", 4,
		progress(0, 4, "processing"),
		progress(1, 4, "processing"),
		progress(2, 4, "processing"),
		progress(3, 4, "processing"),
		progress(4, 4, "completed"),
	)
	api.statusDelay = 15 * time.Millisecond
	s := usecase.NewUploadSession(api, 2*time.Millisecond)
	t.Cleanup(s.Close)

	s.Start(context.Background(), usecase.UploadFile{Name: "a.zip", Data: zipBytes(t)})
	s.Wait()

	assert.Equal(t, domain.UploadCompleted, s.State().Status)
	assert.Equal(t, 5, api.pollCount("job-1"))
	assert.Equal(t, 1, api.maxConcurrentPolls())
}
