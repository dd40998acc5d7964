// File: internal/usecase/chunk.go
package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"content-studio/internal/domain/ports/adapter"
)

// NormalizeChunk turns one raw provider chunk into a Fragment. Shapes are
// tried in a fixed order and the first non-empty text wins:
//
//  1. candidates[0].content.parts[].text (Gemini responses)
//  2. content.parts[].text
//  3. choices[0].delta.content (OpenAI-compatible deltas)
//  4. a Text() method or top-level "text" field
//  5. the value itself, for strings and other scalars
//
// Structured chunks that yield nothing (usage-only, role-only) are Empty.
func NormalizeChunk(raw any) adapter.Fragment {
	switch v := raw.(type) {
	case nil:
		return adapter.EmptyFragment()
	case adapter.Fragment:
		return v
	case string:
		return adapter.TextFragment(v)
	case []byte:
		return adapter.TextFragment(string(v))
	}

	doc, hasDoc := chunkJSON(raw)
	if hasDoc {
		if t := partsText(doc.Get("candidates.0.content.parts")); t != "" {
			return adapter.TextFragment(t)
		}
		if t := partsText(doc.Get("content.parts")); t != "" {
			return adapter.TextFragment(t)
		}
		if t := doc.Get("choices.0.delta.content"); t.Type == gjson.String && t.Str != "" {
			return adapter.TextFragment(t.Str)
		}
	}

	if tx, ok := raw.(interface{ Text() string }); ok {
		if t := tx.Text(); t != "" {
			return adapter.TextFragment(t)
		}
	}
	if hasDoc {
		if t := doc.Get("text"); t.Type == gjson.String && t.Str != "" {
			return adapter.TextFragment(t.Str)
		}
	}

	if s, ok := raw.(fmt.Stringer); ok {
		return adapter.TextFragment(s.String())
	}
	switch v := raw.(type) {
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return adapter.TextFragment(fmt.Sprint(v))
	}
	return adapter.EmptyFragment()
}

func chunkJSON(raw any) (gjson.Result, bool) {
	if r, ok := raw.(interface{ RawJSON() string }); ok {
		if s := r.RawJSON(); s != "" && gjson.Valid(s) {
			return gjson.Parse(s), true
		}
	}
	b, err := json.Marshal(raw)
	if err != nil || !gjson.ValidBytes(b) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(b), true
}

// partsText joins the text of non-thought parts.
func partsText(parts gjson.Result) string {
	if !parts.IsArray() {
		return ""
	}
	var b strings.Builder
	parts.ForEach(func(_, p gjson.Result) bool {
		if p.Get("thought").Bool() {
			return true
		}
		if t := p.Get("text"); t.Type == gjson.String {
			b.WriteString(t.Str)
		}
		return true
	})
	return b.String()
}
