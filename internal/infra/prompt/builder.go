// Package prompt renders per-kind generation prompts.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.PromptBuilder = (*Builder)(nil)

const systemPrompt = `You are a senior content strategist and SEO copywriter.
Write in the requested language and tone. Never invent statistics or quotes.`

// Prose kinds end with these two lines so the relay can lift them out.
const seoFooter = `
Finish your answer with exactly these two lines, each on its own line:
**SEO_TITLE:** <a title under 60 characters>
**META_DESCRIPTION:** <a description under 155 characters>`

const jsonOnly = `
Respond with JSON only. Do not wrap it in markdown fences or add commentary.`

var templates = map[model.JobKind]string{
	model.JobKindArticle: `Write a long-form article titled "{{.In.Title}}" targeting the keyword "{{.In.Keyword}}".
Aim for about {{.Words}} words with H2/H3 headings in markdown.
{{template "common" .}}` + seoFooter,

	model.JobKindReview: `Write an honest product or service review of "{{.In.Title}}".
{{- with .In.Keyword}} Target the keyword "{{.}}".{{end}}
Cover strengths, weaknesses, who it is for, and a verdict. Aim for about {{.Words}} words.
{{template "common" .}}` + seoFooter,

	model.JobKindForecast: `Write a forward-looking trend forecast about "{{.In.Topic}}".
{{- with .In.Keyword}} Target the keyword "{{.}}".{{end}}
Describe drivers, scenarios and signals to watch. Aim for about {{.Words}} words.
{{template "common" .}}` + seoFooter,

	model.JobKindContentIdeas: `Generate {{.Ideas}} content ideas about "{{.In.Topic}}".
{{template "common" .}}
Return a JSON array where each element is {"title": string, "angle": string, "format": string, "keyword": string}.` + jsonOnly,

	model.JobKindSEOStructure: `Design the SEO outline for a page targeting "{{.In.Keyword}}".
{{- with .In.Title}} Working title: "{{.}}".{{end}}
{{template "common" .}}
Return a JSON object {"h1": string, "sections": [{"h2": string, "h3": [string]}], "faq": [string], "relatedKeywords": [string]}.` + jsonOnly,
}

const common = `{{define "common"}}
{{- with .In.Company}}Company: {{.}}.
{{end}}
{{- with .In.Audience}}Audience: {{.}}.
{{end}}
{{- with .In.Tone}}Tone: {{.}}.
{{end}}
{{- with .In.Language}}Language: {{.}}.
{{end}}
{{- with .In.Notes}}Extra instructions: {{.}}
{{end}}
{{- with .Context}}Context from the company website (use it for facts about the business):
"""
{{.}}
"""
{{end}}
{{- end}}`

type Builder struct {
	tpl       map[model.JobKind]*template.Template
	model     string
	maxTokens int
}

func NewBuilder(defaultModel string, maxTokens int) (*Builder, error) {
	b := &Builder{tpl: make(map[model.JobKind]*template.Template, len(templates)), model: defaultModel, maxTokens: maxTokens}
	for kind, body := range templates {
		t, err := template.New(string(kind)).Option("missingkey=error").Parse(common)
		if err != nil {
			return nil, fmt.Errorf("parse common template: %w", err)
		}
		if t, err = t.Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		b.tpl[kind] = t
	}
	return b, nil
}

type view struct {
	In      model.GenerationInput
	Context string
	Words   int
	Ideas   int
}

func (b *Builder) Build(in adapter.PromptInput) (adapter.GenerateRequest, error) {
	t, ok := b.tpl[in.Kind]
	if !ok {
		return adapter.GenerateRequest{}, fmt.Errorf("prompt for %q: %w", in.Kind, domain.ErrUnknownKind)
	}
	v := view{In: in.Input, Context: strings.TrimSpace(in.Context), Words: in.Input.TargetWords, Ideas: in.Input.IdeaCount}
	if v.Words == 0 {
		v.Words = 1200
	}
	if v.Ideas == 0 {
		v.Ideas = 10
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return adapter.GenerateRequest{}, fmt.Errorf("render %s prompt: %w", in.Kind, err)
	}
	return adapter.GenerateRequest{
		Model:        b.model,
		SystemPrompt: systemPrompt,
		Prompt:       strings.TrimSpace(buf.String()),
		MaxTokens:    b.maxTokens,
	}, nil
}
