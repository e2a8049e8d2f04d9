package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/projection"
	"github.com/fairyhunter13/talentfinder/pkg/textx"
)

// User-facing search messages.
const (
	MsgEmptyJobDescription = "Please enter a job description to get profiles."
	MsgSearchFailed        = "Search failed. Please try again later."
)

// SearchOptions bound and shape a search session.
type SearchOptions struct {
	MinTopK       int
	MaxTopK       int
	DefaultTopK   int
	PageSize      int
	TopSkillLimit int
}

// SearchOptionsFromConfig reads the search bounds from cfg.
func SearchOptionsFromConfig(cfg config.Config) SearchOptions {
	return SearchOptions{
		MinTopK:       cfg.SearchMinTopK,
		MaxTopK:       cfg.SearchMaxTopK,
		DefaultTopK:   cfg.SearchDefaultTopK,
		PageSize:      cfg.ResultsPageSize,
		TopSkillLimit: cfg.DashboardTopSkill,
	}
}

// ResultsView is the grid page derived from the current search state.
type ResultsView struct {
	Seq    uint64                         `json:"seq"`
	Phase  domain.SearchPhase             `json:"phase"`
	Error  string                         `json:"error,omitempty"`
	TopK   int                            `json:"top_k"`
	Total  int                            `json:"total"`
	Filter domain.FilterState             `json:"filter"`
	Page   projection.Page[domain.Profile] `json:"page"`
}

// SearchSession runs query submissions for one user. Only the newest
// submission may change the visible state; results of superseded
// submissions are discarded.
type SearchSession struct {
	id       string
	search   domain.SearchAPI
	profiles *ProfileFetcher
	opts     SearchOptions

	mu       sync.Mutex
	seq      uint64
	state    domain.SearchState
	filter   domain.FilterState
	page     int
	closed   bool
	cancel   context.CancelFunc
	onChange func(domain.SearchState)
	version  uint64

	notifyMu  sync.Mutex
	delivered uint64
	wg        sync.WaitGroup
}

func NewSearchSession(search domain.SearchAPI, profiles *ProfileFetcher, opts SearchOptions) *SearchSession {
	if opts.MinTopK < 1 {
		opts.MinTopK = 1
	}
	if opts.MaxTopK < opts.MinTopK {
		opts.MaxTopK = opts.MinTopK
	}
	if opts.DefaultTopK == 0 {
		opts.DefaultTopK = opts.MinTopK
	}
	return &SearchSession{
		id:       uuid.NewString(),
		search:   search,
		profiles: profiles,
		opts:     opts,
		state:    domain.SearchState{Phase: domain.SearchIdle, Stubs: []domain.ResultStub{}, Profiles: []domain.Profile{}},
		filter:   domain.DefaultFilter(),
		page:     1,
	}
}

// ID identifies the session in logs.
func (s *SearchSession) ID() string { return s.id }

// OnChange registers fn to receive committed states. Deliveries never go
// backwards: when two commits race, the older one may be skipped. fn may
// read the session but must not submit.
func (s *SearchSession) OnChange(fn func(domain.SearchState)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// NormalizeQuery trims the query, de-duplicates skills and clamps TopK.
func (s *SearchSession) NormalizeQuery(q domain.SearchQuery) domain.SearchQuery {
	q.JobDescription = textx.SanitizeText(q.JobDescription)
	q.RequiredSkills = textx.NormalizeSkills(q.RequiredSkills)
	if q.TopK == 0 {
		q.TopK = s.opts.DefaultTopK
	}
	if q.TopK < s.opts.MinTopK {
		q.TopK = s.opts.MinTopK
	}
	if q.TopK > s.opts.MaxTopK {
		q.TopK = s.opts.MaxTopK
	}
	return q
}

// Submit starts a new search and returns its first state. An invalid query
// yields a Failed state without any request. Otherwise the Loading state is
// returned and the request continues in the background; later states reach
// the OnChange observer and State.
func (s *SearchSession) Submit(ctx context.Context, q domain.SearchQuery) domain.SearchState {
	q = s.NormalizeQuery(q)
	lg := observability.LoggerFromContext(ctx).With(slog.String("session_id", s.id))

	s.mu.Lock()
	if s.closed {
		st := s.state
		s.mu.Unlock()
		return st
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	seq := s.seq
	s.filter = domain.DefaultFilter()
	s.page = 1

	if err := validateStruct(q); err != nil {
		st := domain.SearchState{
			Seq:      seq,
			Phase:    domain.SearchFailed,
			Query:    q,
			Stubs:    []domain.ResultStub{},
			Profiles: []domain.Profile{},
			Error:    MsgEmptyJobDescription,
		}
		s.setLocked(st)
		observability.RecordSearch("rejected")
		lg.Info("search rejected", slog.Uint64("seq", seq), slog.Any("error", err))
		return st
	}

	st := domain.SearchState{
		Seq:      seq,
		Phase:    domain.SearchLoading,
		Query:    q,
		TopK:     q.TopK,
		Total:    q.TopK,
		Stubs:    []domain.ResultStub{},
		Profiles: []domain.Profile{},
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx = observability.ContextWithLogger(runCtx, lg)
	s.cancel = cancel
	s.wg.Add(1)
	s.setLocked(st)

	lg.Info("search submitted", slog.Uint64("seq", seq), slog.Int("top_k", q.TopK))
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, st)
	}()
	return st
}

func (s *SearchSession) run(ctx context.Context, st domain.SearchState) {
	ctx, span := otel.Tracer("usecase.search").Start(ctx, "SearchSession.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("search.seq", int64(st.Seq)),
		attribute.Int("search.top_k", st.TopK),
	)
	lg := observability.LoggerFromContext(ctx).With(slog.Uint64("seq", st.Seq))

	stubs, err := s.search.Search(ctx, st.Query.JobDescription, st.TopK)
	if err != nil {
		span.RecordError(err)
		lg.Warn("search request failed", slog.Any("error", err))
		failed := st
		failed.Phase = domain.SearchFailed
		failed.TopK = 0
		failed.Total = 0
		failed.Error = MsgSearchFailed
		if s.commit(failed) {
			observability.RecordSearch("failed")
		}
		return
	}

	withStubs := st
	withStubs.Stubs = stubs
	if !s.commit(withStubs) {
		return
	}

	profiles := s.profiles.Hydrate(ctx, stubs)
	loaded := withStubs
	loaded.Phase = domain.SearchLoaded
	loaded.Profiles = profiles
	loaded.Total = len(profiles)
	if s.commit(loaded) {
		observability.RecordSearch("loaded")
		lg.Info("search loaded", slog.Int("stubs", len(stubs)), slog.Int("profiles", len(profiles)))
	}
}

// commit stores st if its submission is still the current one.
func (s *SearchSession) commit(st domain.SearchState) bool {
	s.mu.Lock()
	if s.closed || st.Seq != s.seq {
		s.mu.Unlock()
		observability.RecordStaleSearch()
		return false
	}
	s.setLocked(st)
	return true
}

// setLocked stores st and notifies the observer. Called with s.mu held;
// releases it.
func (s *SearchSession) setLocked(st domain.SearchState) {
	s.state = st
	s.version++
	v, fn := s.version, s.onChange
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v <= s.delivered {
		return
	}
	s.delivered = v
	if fn != nil {
		fn(st)
	}
}

// State returns the current search state.
func (s *SearchSession) State() domain.SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Filter returns the current filter.
func (s *SearchSession) Filter() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter replaces the filter and returns to the first page.
func (s *SearchSession) SetFilter(f domain.FilterState) error {
	if f.SortBy == "" {
		f.SortBy = domain.SortRelevance
	}
	if err := validateStruct(f); err != nil {
		return fmt.Errorf("op=usecase.SetFilter: %w", err)
	}
	f.RequiredSkills = textx.NormalizeSkills(f.RequiredSkills)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.page = 1
	return nil
}

// SetPage selects the grid page; out of range values are clamped on read.
func (s *SearchSession) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = n
}

// FilteredProfiles applies the current filter to the current profiles.
func (s *SearchSession) FilteredProfiles() []domain.Profile {
	s.mu.Lock()
	profiles, f := s.state.Profiles, s.filter
	s.mu.Unlock()
	return projection.Apply(profiles, f)
}

// View derives the current grid page.
func (s *SearchSession) View() ResultsView {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	return s.ViewPage(page)
}

// ViewPage derives grid page n without changing the selected page.
func (s *SearchSession) ViewPage(n int) ResultsView {
	s.mu.Lock()
	st, f := s.state, s.filter
	s.mu.Unlock()
	return ResultsView{
		Seq:    st.Seq,
		Phase:  st.Phase,
		Error:  st.Error,
		TopK:   st.TopK,
		Total:  st.Total,
		Filter: f,
		Page:   projection.Paginate(projection.Apply(st.Profiles, f), n, s.opts.PageSize),
	}
}

// Dashboard projects the current profiles. An empty selectedID picks the
// best scoring profile.
func (s *SearchSession) Dashboard(selectedID string) (projection.Dashboard, error) {
	st := s.State()
	var selected *domain.Profile
	if selectedID != "" {
		p, ok := projection.FindProfile(st.Profiles, selectedID)
		if !ok {
			return projection.Dashboard{}, fmt.Errorf("op=usecase.Dashboard: %w: profile %q not in results", domain.ErrNotFound, selectedID)
		}
		selected = &p
	} else if p, ok := projection.BestProfile(st.Profiles); ok {
		selected = &p
	}
	return projection.Project(st.Profiles, st.Query.RequiredSkills, selected, s.opts.TopSkillLimit), nil
}

// Wait blocks until every running submission has returned.
func (s *SearchSession) Wait() { s.wg.Wait() }

// Close cancels in-flight work. Nothing is committed afterwards.
func (s *SearchSession) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
