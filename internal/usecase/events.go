// File: internal/usecase/events.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"content-studio/internal/domain/model"
)

const (
	EventContent  = "content"
	EventInfo     = "info"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is one message on a job's outbound channel. It encodes as a flat
// JSON object: {"type": ..., <fields>}.
type Event struct {
	Type   string
	Fields map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	return json.Marshal(out)
}

// Terminal reports whether e ends the sequence.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// IDEvent announces the job id, e.g. {"type":"article_id","articleId":"..."}.
func IDEvent(kind model.JobKind, jobID string) Event {
	p := kind.EventPrefix()
	return Event{Type: p + "_id", Fields: map[string]any{p + "Id": jobID}}
}

func ContentEvent(text string) Event {
	return Event{Type: EventContent, Fields: map[string]any{"text": text}}
}

func InfoEvent(msg string) Event {
	return Event{Type: EventInfo, Fields: map[string]any{"message": msg}}
}

// RetryInfoEvent tells the client a provider call is being retried after delay.
func RetryInfoEvent(delay time.Duration) Event {
	return InfoEvent(fmt.Sprintf("provider busy, retrying in %s", delay.Round(time.Second)))
}

func CompleteEvent(meta model.JobMetadata) Event {
	return Event{Type: EventComplete, Fields: map[string]any{
		"seoTitle":        meta.SEOTitle,
		"metaDescription": meta.MetaDescription,
		"wordCount":       meta.WordCount,
	}}
}

func ErrorEvent(msg, code string) Event {
	f := map[string]any{"error": msg}
	if code != "" {
		f["code"] = code
	}
	return Event{Type: EventError, Fields: f}
}

// EventSink is the one-way channel to the waiting client. A Send error means
// the client is gone. Close is called exactly once by the relay.
type EventSink interface {
	Send(ctx context.Context, ev Event) error
	Close() error
}
