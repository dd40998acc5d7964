//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
)

type ucFixture struct {
	jobs     *memJobRepo
	configs  *memConfigRepo
	quota    *mockQuota
	provider *scriptedProvider
	uc       *generationUC
}

func newUCFixture() *ucFixture {
	f := &ucFixture{
		jobs:     newMemJobRepo(),
		configs:  &memConfigRepo{},
		quota:    &mockQuota{allowed: true},
		provider: &scriptedProvider{available: true, newStream: textStream("ok")},
	}
	relay := NewStreamRelay(RelayDeps{
		Jobs:     f.jobs,
		Provider: f.provider,
		Limiter:  &countingLimiter{},
		Retrier:  instantRetrier(DefaultRetryPolicy(), &recordedSleeps{}),
		Prompts:  stubPrompts{},
	}, nopLogger())
	identity := tokenIdentity{"tok-alice": "alice", "tok-bob": "bob"}
	f.uc = NewGenerationUseCase(f.jobs, f.configs, identity, f.quota, f.provider, relay, nopLogger())
	return f
}

func TestGenerationUC_StartRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *ucFixture)
		req   StartRequest
		want  error
		code  string
	}{
		{"unknown kind", nil, StartRequest{Kind: "poem"}, domain.ErrUnknownKind, CodeUnknownKind},
		{"missing fields", nil, StartRequest{Kind: "article", Input: model.GenerationInput{Keyword: "k"}}, domain.ErrInvalidArgument, CodeValidation},
		{"bad credential", nil, StartRequest{Kind: "article", Input: articleInput, Credential: "forged"}, domain.ErrUnauthorized, CodeUnauthorized},
		{"missing config", nil, StartRequest{Kind: "article", Input: articleInput, Credential: "tok-alice", ConfigID: "nope"}, domain.ErrConfigNotFound, CodeConfigNotFound},
		{"config of another owner", func(f *ucFixture) {
			_ = f.configs.Save(context.Background(), &model.GenerationConfig{ID: "cfg-bob", OwnerID: "bob"})
		}, StartRequest{Kind: "article", Input: articleInput, Credential: "tok-alice", ConfigID: "cfg-bob"}, domain.ErrConfigNotFound, CodeConfigNotFound},
		{"config for anonymous caller", func(f *ucFixture) {
			_ = f.configs.Save(context.Background(), &model.GenerationConfig{ID: "cfg-bob", OwnerID: "bob"})
		}, StartRequest{Kind: "article", Input: articleInput, ConfigID: "cfg-bob"}, domain.ErrConfigNotFound, CodeConfigNotFound},
		{"provider unavailable", func(f *ucFixture) { f.provider.available = false },
			StartRequest{Kind: "article", Input: articleInput}, domain.ErrProviderUnavailable, CodeProviderUnavailable},
		{"quota exceeded", func(f *ucFixture) { f.quota.allowed = false },
			StartRequest{Kind: "article", Input: articleInput}, domain.ErrQuotaExceeded, CodeFreeLimitReached},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newUCFixture()
			if tc.setup != nil {
				tc.setup(f)
			}
			job, err := f.uc.Start(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, but got: %v", tc.want, err)
			}
			if job != nil {
				t.Errorf("expected no job, got %+v", job)
			}
			if code := RejectCode(err); code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, code)
			}
			if len(f.jobs.jobs) != 0 {
				t.Errorf("no job may be created on rejection, got %d", len(f.jobs.jobs))
			}
			if f.provider.callCount() != 0 {
				t.Errorf("no provider call may be made on rejection, got %d", f.provider.callCount())
			}
		})
	}
}

func TestGenerationUC_StartCreatesJob(t *testing.T) {
	f := newUCFixture()
	job, err := f.uc.Start(context.Background(), StartRequest{Kind: "article", Input: articleInput, Credential: "tok-alice"})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	stored, err := f.jobs.FindByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected stored job, but got: %v", err)
	}
	if stored.Status != model.JobStatusGenerating || stored.OwnerID != "alice" {
		t.Errorf("unexpected stored job: %+v", stored)
	}
	if len(f.quota.subjects) != 1 || f.quota.subjects[0] != "alice" {
		t.Errorf("expected quota charged to alice, got %v", f.quota.subjects)
	}
	if f.provider.callCount() != 0 {
		t.Error("Start must not call the provider")
	}
}

func TestGenerationUC_AnonymousQuotaSubject(t *testing.T) {
	f := newUCFixture()
	if _, err := f.uc.Start(context.Background(), StartRequest{Kind: "forecast", Input: model.GenerationInput{Topic: "rates"}, ClientIP: "203.0.113.9"}); err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if f.quota.subjects[0] != "ip:203.0.113.9" {
		t.Errorf("expected ip subject, got %v", f.quota.subjects)
	}
}

func TestGenerationUC_QuotaErrorFailsOpen(t *testing.T) {
	f := newUCFixture()
	f.quota.err = errors.New("redis down")
	if _, err := f.uc.Start(context.Background(), StartRequest{Kind: "article", Input: articleInput}); err != nil {
		t.Fatalf("expected quota backend failure to allow the request, but got: %v", err)
	}
}

func TestGenerationUC_ConfigDefaultsFillInput(t *testing.T) {
	f := newUCFixture()
	_ = f.configs.Save(context.Background(), &model.GenerationConfig{
		ID: "cfg-1", OwnerID: "alice",
		Defaults: model.GenerationInput{Title: "From config", Tone: "warm", Company: "Bean Co"},
	})

	job, err := f.uc.Start(context.Background(), StartRequest{
		Kind: "article", Credential: "tok-alice", ConfigID: "cfg-1",
		Input: model.GenerationInput{Keyword: "latte", Tone: "playful"},
	})
	if err != nil {
		t.Fatalf("expected defaults to satisfy validation, but got: %v", err)
	}
	if job.Input.Title != "From config" || job.Input.Tone != "playful" || job.Input.Company != "Bean Co" {
		t.Errorf("unexpected merged input: %+v", job.Input)
	}
	if job.ConfigID != "cfg-1" {
		t.Errorf("expected config id recorded, got %q", job.ConfigID)
	}
}

func TestGenerationUC_CreateFailure(t *testing.T) {
	f := newUCFixture()
	f.jobs.createErr = errors.New("db unavailable")
	ctx, cancel := context.WithCancel(context.Background())
	f.jobs.onCreate = cancel
	if _, err := f.uc.Start(ctx, StartRequest{Kind: "article", Input: articleInput, ClientIP: "10.0.0.7"}); err == nil {
		t.Fatal("expected error when the job row cannot be created")
	}
	if len(f.quota.refunds) != 1 || f.quota.refunds[0] != "ip:10.0.0.7" {
		t.Errorf("expected the consumed unit refunded even after cancellation, got %v", f.quota.refunds)
	}

	// a failed quota lookup charged nothing, so nothing is given back
	g := newUCFixture()
	g.quota.err = errors.New("redis down")
	g.jobs.createErr = errors.New("db unavailable")
	if _, err := g.uc.Start(context.Background(), StartRequest{Kind: "article", Input: articleInput}); err == nil {
		t.Fatal("expected create error")
	}
	if len(g.quota.refunds) != 0 {
		t.Errorf("unexpected refund %v", g.quota.refunds)
	}
	if RejectCode(errors.New("x")) != CodeInternal {
		t.Error("unclassified errors must map to INTERNAL_ERROR")
	}
}

func TestGenerationUC_EndToEndStream(t *testing.T) {
	f := newUCFixture()
	job, err := f.uc.Start(context.Background(), StartRequest{Kind: "seo-structure", Input: model.GenerationInput{Keyword: "latte"}})
	if err != nil {
		t.Fatal(err)
	}
	f.provider.newStream = textStream(`{"h1":"Latte guide"}`)
	sink := &recordingSink{}

	f.uc.Stream(context.Background(), job, sink)

	types := sink.types()
	if types[0] != "seoStructure_id" || types[len(types)-1] != EventComplete {
		t.Fatalf("unexpected events %v", types)
	}
	terminals := 0
	for _, ty := range types {
		if ty == EventComplete || ty == EventError {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminals)
	}
	got, err := f.uc.GetJob(context.Background(), job.ID, "")
	if err != nil || got.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed job, got %+v, %v", got, err)
	}
}

func TestGenerationUC_GetJobAccess(t *testing.T) {
	f := newUCFixture()
	job, err := f.uc.Start(context.Background(), StartRequest{Kind: "article", Input: articleInput, Credential: "tok-alice"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.uc.GetJob(context.Background(), job.ID, "tok-alice"); err != nil {
		t.Errorf("owner must see the job, got %v", err)
	}
	if _, err := f.uc.GetJob(context.Background(), job.ID, "tok-bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other owners must get ErrNotFound, got %v", err)
	}
	if _, err := f.uc.GetJob(context.Background(), job.ID, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("anonymous callers must not see owned jobs, got %v", err)
	}
	if _, err := f.uc.GetJob(context.Background(), "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
