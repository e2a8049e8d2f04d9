package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

var errBoom = errors.New("boom")

// profileStore serves profiles from a map; ids in fail return an error.
type profileStore struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	fail     map[string]bool
	calls    map[string]int
}

func newProfileStore(ids ...string) *profileStore {
	ps := &profileStore{profiles: map[string]domain.Profile{}, fail: map[string]bool{}, calls: map[string]int{}}
	for _, id := range ids {
		ps.profiles[id] = domain.Profile{DocumentID: id, Name: "Name " + id, Skills: []string{"Go"}}
	}
	return ps
}

func (p *profileStore) GetProfile(_ context.Context, id string) (domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[id]++
	if p.fail[id] {
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, id)
	}
	pr, ok := p.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return pr, nil
}

func (p *profileStore) callCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

// searchFunc adapts a function to domain.SearchAPI.
type searchFunc func(ctx context.Context, jd string, topK int) ([]domain.ResultStub, error)

func (f searchFunc) Search(ctx context.Context, jd string, topK int) ([]domain.ResultStub, error) {
	return f(ctx, jd, topK)
}

func stubs(ids ...string) []domain.ResultStub {
	out := make([]domain.ResultStub, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.ResultStub{DocumentID: id, Score: float64(90 - i)})
	}
	return out
}

// uploadAPI scripts upload responses. Status scripts are consumed in order;
// the last entry repeats.
type uploadAPI struct {
	mu        sync.Mutex
	uploadErr error
	receipts  map[string]domain.UploadReceipt
	scripts   map[string][]pollResult
	polls     map[string]int
	uploads   int

	// gate, when set, holds every submission until it is closed. The
	// context is ignored so a late receipt still arrives.
	gate chan struct{}
	// statusDelay slows every status poll; inFlight and maxInFlight count
	// overlapping polls.
	statusDelay time.Duration
	inFlight    int
	maxInFlight int
}

type pollResult struct {
	progress domain.UploadProgress
	err      error
}

func newUploadAPI() *uploadAPI {
	return &uploadAPI{
		receipts: map[string]domain.UploadReceipt{},
		scripts:  map[string][]pollResult{},
		polls:    map[string]int{},
	}
}

func (u *uploadAPI) job(fileName, jobID string, total int, script ...pollResult) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.receipts[fileName] = domain.UploadReceipt{JobID: jobID, TotalFiles: total}
	u.scripts[jobID] = script
}

func (u *uploadAPI) UploadResumes(_ context.Context, fileName string, archive io.Reader) (domain.UploadReceipt, error) {
	_, _ = io.Copy(io.Discard, archive)
	u.mu.Lock()
	gate := u.gate
	u.mu.Unlock()
	if gate != nil {
		<-gate
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads++
	if u.uploadErr != nil {
		return domain.UploadReceipt{}, u.uploadErr
	}
	r, ok := u.receipts[fileName]
	if !ok {
		return domain.UploadReceipt{}, domain.ErrInvalidArgument
	}
	return r, nil
}

func (u *uploadAPI) UploadStatus(_ context.Context, jobID string) (domain.UploadProgress, error) {
	u.mu.Lock()
	u.inFlight++
	u.maxInFlight = max(u.maxInFlight, u.inFlight)
	delay := u.statusDelay
	u.mu.Unlock()
	time.Sleep(delay)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.inFlight--
	script := u.scripts[jobID]
	n := u.polls[jobID]
	u.polls[jobID]++
	if len(script) == 0 {
		return domain.UploadProgress{}, errBoom
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n].progress, script[n].err
}

func (u *uploadAPI) pollCount(jobID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.polls[jobID]
}

func (u *uploadAPI) maxConcurrentPolls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.maxInFlight
}

func (u *uploadAPI) uploadCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploads
}

func progress(processed, total int, status string) pollResult {
	return pollResult{progress: domain.UploadProgress{ProcessedFiles: processed, TotalFiles: total, Status: status}}
}

// zipBytes builds a real archive so content sniffing accepts it.
func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("resume.pdf")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte("%PDF-1.4 resume")); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// recorder collects observed states.
type recorder[T any] struct {
	mu     sync.Mutex
	states []T
}

func (r *recorder[T]) add(s T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.states...)
}

// memStore is an in-memory token store.
type memStore struct {
	mu  sync.Mutex
	tok string
}

func (m *memStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *memStore) Save(_ context.Context, tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	return nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = ""
	return nil
}
