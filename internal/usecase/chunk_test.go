//go:build !integration

package usecase

import (
	"testing"
)

type geminiLikeChunk struct {
	Candidates []struct {
		Content struct {
			Parts []map[string]any `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func geminiChunk(parts ...map[string]any) geminiLikeChunk {
	var c geminiLikeChunk
	c.Candidates = make([]struct {
		Content struct {
			Parts []map[string]any `json:"parts"`
		} `json:"content"`
	}, 1)
	c.Candidates[0].Content.Parts = parts
	return c
}

type textMethodChunk struct{ t string }

func (c textMethodChunk) Text() string { return c.t }

type rawJSONChunk struct{ raw string }

func (c rawJSONChunk) RawJSON() string { return c.raw }

type stringerChunk struct{}

func (stringerChunk) String() string { return "stringer" }

func TestNormalizeChunk(t *testing.T) {
	tests := []struct {
		name  string
		raw   any
		want  string
		empty bool
	}{
		{"nil", nil, "", true},
		{"plain string", "hello", "hello", false},
		{"empty string", "", "", true},
		{"bytes", []byte("raw"), "raw", false},
		{"candidate parts", geminiChunk(map[string]any{"text": "a"}, map[string]any{"text": "b"}), "ab", false},
		{"candidate thoughts skipped", geminiChunk(map[string]any{"text": "thinking", "thought": true}, map[string]any{"text": "answer"}), "answer", false},
		{"flat content parts", map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "flat"}}}}, "flat", false},
		{"openai delta", rawJSONChunk{`{"choices":[{"delta":{"content":"delta"}}]}`}, "delta", false},
		{"openai role only", rawJSONChunk{`{"choices":[{"delta":{"role":"assistant"}}]}`}, "", true},
		{"text method", textMethodChunk{"method"}, "method", false},
		{"text property", map[string]any{"text": "prop"}, "prop", false},
		{"usage only", map[string]any{"usageMetadata": map[string]any{"totalTokenCount": 9}}, "", true},
		{"stringer", stringerChunk{}, "stringer", false},
		{"number", 42, "42", false},
		{"candidates win over text", map[string]any{
			"text":       "second",
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "first"}}}}},
		}, "first", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frag := NormalizeChunk(tc.raw)
			got, ok := frag.Text()
			if tc.empty {
				if ok || !frag.IsEmpty() {
					t.Fatalf("expected empty fragment, got %q", got)
				}
				return
			}
			if !ok || got != tc.want {
				t.Fatalf("expected %q, got %q (ok=%v)", tc.want, got, ok)
			}
		})
	}
}
