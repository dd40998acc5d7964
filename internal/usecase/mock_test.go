//go:build !integration

package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Job repository ----

type memJobRepo struct {
	mu          sync.Mutex
	jobs        map[string]model.GenerationJob
	createErr   error
	finalizeErr error
	finalized   []model.GenerationJob
	touched     []string
	onCreate    func()
}

var _ repository.GenerationJobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[string]model.GenerationJob{}}
}

func (m *memJobRepo) Create(ctx context.Context, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCreate != nil {
		m.onCreate()
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobRepo) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *memJobRepo) touchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.touched)
}

func (m *memJobRepo) Finalize(ctx context.Context, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = append(m.finalized, *job)
	if m.finalizeErr != nil {
		return m.finalizeErr
	}
	cur, ok := m.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != model.JobStatusGenerating {
		return domain.ErrJobTerminal
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

func (m *memJobRepo) FailStale(ctx context.Context, olderThan time.Time, message, code string) (int64, error) {
	return 0, nil
}

func (m *memJobRepo) get(id string) model.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

func (m *memJobRepo) finalizeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.finalized)
}

// ---- Config repository ----

type memConfigRepo struct {
	configs map[string]*model.GenerationConfig
	err     error
}

var _ repository.GenerationConfigRepository = (*memConfigRepo)(nil)

func (m *memConfigRepo) Save(ctx context.Context, cfg *model.GenerationConfig) error {
	if m.configs == nil {
		m.configs = map[string]*model.GenerationConfig{}
	}
	m.configs[cfg.ID] = cfg
	return nil
}

func (m *memConfigRepo) FindByID(ctx context.Context, id string) (*model.GenerationConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *memConfigRepo) Delete(ctx context.Context, id string) error {
	delete(m.configs, id)
	return nil
}

// ---- Collaborators ----

// tokenIdentity maps credentials to owners; unknown non-empty tokens are rejected.
type tokenIdentity map[string]string

func (t tokenIdentity) Resolve(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", nil
	}
	owner, ok := t[credential]
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return owner, nil
}

type mockQuota struct {
	mu       sync.Mutex
	allowed  bool
	err      error
	subjects []string
	refunds  []string
}

func (q *mockQuota) Consume(ctx context.Context, subject string, kind model.JobKind) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subjects = append(q.subjects, subject)
	return q.allowed, q.err
}

func (q *mockQuota) Refund(ctx context.Context, subject string, kind model.JobKind) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	q.refunds = append(q.refunds, subject)
	return nil
}

type stubPrompts struct{ err error }

func (s stubPrompts) Build(in adapter.PromptInput) (adapter.GenerateRequest, error) {
	if s.err != nil {
		return adapter.GenerateRequest{}, s.err
	}
	return adapter.GenerateRequest{Model: "test-model", Prompt: string(in.Kind) + ":" + in.Context}, nil
}

type stubFetcher struct {
	text string
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context, url string) (string, error) { return s.text, s.err }

// ---- Provider ----

// sliceStream yields chunks, then io.EOF or failErr.
type sliceStream struct {
	mu      sync.Mutex
	chunks  []any
	failErr error
	block   bool // block after the chunks until ctx is done
	closed  int
}

func (s *sliceStream) Recv(ctx context.Context) (any, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.failErr != nil {
		return nil, s.failErr
	}
	return nil, io.EOF
}

func (s *sliceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *sliceStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// scriptedProvider returns errs[i] on call i, then streams from newStream.
type scriptedProvider struct {
	mu        sync.Mutex
	errs      []error
	newStream func() adapter.ProviderStream
	calls     int
	started   chan struct{} // receives once per GenerateStream call when set
	available bool
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Available() bool { return p.available }

func (p *scriptedProvider) GenerateStream(ctx context.Context, req adapter.GenerateRequest) (adapter.ProviderStream, error) {
	p.mu.Lock()
	i := p.calls
	p.calls++
	p.mu.Unlock()
	if p.started != nil {
		p.started <- struct{}{}
	}
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.newStream(), nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func textStream(chunks ...string) func() adapter.ProviderStream {
	return func() adapter.ProviderStream {
		items := make([]any, len(chunks))
		for i, c := range chunks {
			items[i] = c
		}
		return &sliceStream{chunks: items}
	}
}

func providerErr(status int) error {
	return &adapter.ProviderError{Provider: "scripted", StatusCode: status, Message: "scripted failure"}
}

// ---- Limiter ----

type countingLimiter struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

type countingPermit struct {
	l    *countingLimiter
	once sync.Once
}

func (p *countingPermit) Release() {
	p.once.Do(func() {
		p.l.mu.Lock()
		p.l.released++
		p.l.mu.Unlock()
	})
}

func (l *countingLimiter) Acquire(ctx context.Context) (adapter.Permit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return &countingPermit{l: l}, nil
}

func (l *countingLimiter) balance() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired, l.released
}

// ---- Sink ----

type recordingSink struct {
	mu        sync.Mutex
	events    []Event
	failAfter int // fail sends once this many events were accepted; 0 never fails
	closed    int
}

func (s *recordingSink) Send(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.events) >= s.failAfter {
		return errors.New("write: broken pipe")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func (s *recordingSink) last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return Event{}
	}
	return s.events[len(s.events)-1]
}

func (s *recordingSink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, e := range s.events {
		if e.Type == EventContent {
			b.WriteString(e.Fields["text"].(string))
		}
	}
	return b.String()
}

// ---- Retrier with recorded waits ----

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func instantRetrier(policy RetryPolicy, rec *recordedSleeps) *Retrier {
	r := NewRetrier(policy)
	r.sleep = rec.sleep
	r.jitter = func(time.Duration) time.Duration { return 0 }
	return r
}

func reqFixture() adapter.GenerateRequest {
	return adapter.GenerateRequest{Model: "test-model", Prompt: "write"}
}
