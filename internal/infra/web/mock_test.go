//go:build !integration

package web

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/usecase"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// fakeGen records Start requests and replays a fixed event script on Stream.
type fakeGen struct {
	mu       sync.Mutex
	startErr error
	events   []usecase.Event
	jobs     map[string]*model.GenerationJob
	requests []usecase.StartRequest
	streamed int
}

var _ usecase.GenerationUseCase = (*fakeGen)(nil)

func (f *fakeGen) Start(ctx context.Context, req usecase.StartRequest) (*model.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	kind, err := model.ParseJobKind(req.Kind)
	if err != nil {
		return nil, err
	}
	return &model.GenerationJob{ID: "job-1", Kind: kind, Status: model.JobStatusGenerating, Input: req.Input}, nil
}

func (f *fakeGen) Stream(ctx context.Context, job *model.GenerationJob, sink usecase.EventSink) {
	defer sink.Close()
	f.mu.Lock()
	f.streamed++
	f.mu.Unlock()
	if err := sink.Send(ctx, usecase.IDEvent(job.Kind, job.ID)); err != nil {
		return
	}
	for _, ev := range f.events {
		if err := sink.Send(ctx, ev); err != nil {
			return
		}
	}
}

func (f *fakeGen) GetJob(ctx context.Context, id, credential string) (*model.GenerationJob, error) {
	if credential == "bad" {
		return nil, domain.ErrUnauthorized
	}
	j, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (f *fakeGen) lastRequest() usecase.StartRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}
