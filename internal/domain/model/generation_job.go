package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"content-studio/internal/domain"
)

type JobKind string

const (
	JobKindArticle      JobKind = "article"
	JobKindReview       JobKind = "review"
	JobKindForecast     JobKind = "forecast"
	JobKindContentIdeas JobKind = "content-ideas"
	JobKindSEOStructure JobKind = "seo-structure"
)

var jobKinds = []JobKind{
	JobKindArticle,
	JobKindReview,
	JobKindForecast,
	JobKindContentIdeas,
	JobKindSEOStructure,
}

// ParseJobKind maps a route segment such as "content-ideas" to a JobKind.
func ParseJobKind(s string) (JobKind, error) {
	k := JobKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range jobKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, s)
}

// EventPrefix is the camelCase name used in the first stream event,
// e.g. "contentIdeas" for type "contentIdeas_id" and field "contentIdeasId".
func (k JobKind) EventPrefix() string {
	parts := strings.Split(string(k), "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// StructuredOutput reports whether the provider is asked for JSON instead of prose.
func (k JobKind) StructuredOutput() bool {
	return k == JobKindContentIdeas || k == JobKindSEOStructure
}

type JobStatus string

const (
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// GenerationInput is the validated request payload. Not every field applies to every kind.
type GenerationInput struct {
	Keyword     string `json:"keyword,omitempty"`
	Title       string `json:"title,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Company     string `json:"company,omitempty"`
	Audience    string `json:"audience,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Language    string `json:"language,omitempty"`
	WebsiteURL  string `json:"websiteUrl,omitempty"`
	Notes       string `json:"notes,omitempty"`
	TargetWords int    `json:"targetWords,omitempty"`
	IdeaCount   int    `json:"ideaCount,omitempty"`
}

const maxFieldLen = 500

// WithDefaults fills empty fields from a stored generation config.
func (in GenerationInput) WithDefaults(d GenerationInput) GenerationInput {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) != "" {
			return v
		}
		return def
	}
	out := in
	out.Keyword = pick(in.Keyword, d.Keyword)
	out.Title = pick(in.Title, d.Title)
	out.Topic = pick(in.Topic, d.Topic)
	out.Company = pick(in.Company, d.Company)
	out.Audience = pick(in.Audience, d.Audience)
	out.Tone = pick(in.Tone, d.Tone)
	out.Language = pick(in.Language, d.Language)
	out.WebsiteURL = pick(in.WebsiteURL, d.WebsiteURL)
	out.Notes = pick(in.Notes, d.Notes)
	if out.TargetWords == 0 {
		out.TargetWords = d.TargetWords
	}
	if out.IdeaCount == 0 {
		out.IdeaCount = d.IdeaCount
	}
	return out
}

// Validate checks required fields for the kind and the shape of optional ones.
func (in GenerationInput) Validate(kind JobKind) error {
	required := map[JobKind][]string{
		JobKindArticle:      {"keyword", "title"},
		JobKindReview:       {"title"},
		JobKindForecast:     {"topic"},
		JobKindContentIdeas: {"topic"},
		JobKindSEOStructure: {"keyword"},
	}
	fields := map[string]string{
		"keyword":    in.Keyword,
		"title":      in.Title,
		"topic":      in.Topic,
		"company":    in.Company,
		"audience":   in.Audience,
		"tone":       in.Tone,
		"language":   in.Language,
		"websiteUrl": in.WebsiteURL,
		"notes":      in.Notes,
	}
	req, ok := required[kind]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	for _, name := range req {
		if strings.TrimSpace(fields[name]) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, name)
		}
	}
	for name, v := range fields {
		limit := maxFieldLen
		if name == "notes" {
			limit = 4 * maxFieldLen
		}
		if len(v) > limit {
			return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrInvalidArgument, name, limit)
		}
	}
	if in.WebsiteURL != "" {
		u, err := url.Parse(in.WebsiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: websiteUrl must be an absolute http(s) URL", domain.ErrInvalidArgument)
		}
	}
	if in.TargetWords != 0 && (in.TargetWords < 100 || in.TargetWords > 5000) {
		return fmt.Errorf("%w: targetWords must be between 100 and 5000", domain.ErrInvalidArgument)
	}
	if in.IdeaCount != 0 && (in.IdeaCount < 1 || in.IdeaCount > 50) {
		return fmt.Errorf("%w: ideaCount must be between 1 and 50", domain.ErrInvalidArgument)
	}
	return nil
}

// JobMetadata is populated only on completed jobs.
type JobMetadata struct {
	SEOTitle        string `json:"seoTitle"`
	MetaDescription string `json:"metaDescription"`
	WordCount       int    `json:"wordCount"`
}

// GenerationJob is one generation attempt. Status moves from generating to
// exactly one terminal state and never back.
type GenerationJob struct {
	ID           string          `json:"id"`
	Kind         JobKind         `json:"kind"`
	OwnerID      string          `json:"ownerId,omitempty"`
	ConfigID     string          `json:"configId,omitempty"`
	Input        GenerationInput `json:"inputParameters"`
	Status       JobStatus       `json:"status"`
	Content      string          `json:"content"`
	Metadata     *JobMetadata    `json:"metadata,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewGenerationJob validates the input and returns a job in generating status.
func NewGenerationJob(kind JobKind, ownerID, configID string, input GenerationInput) (*GenerationJob, error) {
	if err := input.Validate(kind); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &GenerationJob{
		ID:        ulid.Make().String(),
		Kind:      kind,
		OwnerID:   ownerID,
		ConfigID:  configID,
		Input:     input,
		Status:    JobStatusGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete moves the job to completed with its final content and metadata.
func (j *GenerationJob) Complete(content string, meta JobMetadata, at time.Time) error {
	if j.Status != JobStatusGenerating {
		return fmt.Errorf("%w: job %s is %s", domain.ErrJobTerminal, j.ID, j.Status)
	}
	j.Status = JobStatusCompleted
	j.Content = content
	j.Metadata = &meta
	j.UpdatedAt = at.UTC()
	return nil
}

// Fail moves the job to error. partial is whatever content was streamed before the failure.
func (j *GenerationJob) Fail(message, code, partial string, at time.Time) error {
	if j.Status != JobStatusGenerating {
		return fmt.Errorf("%w: job %s is %s", domain.ErrJobTerminal, j.ID, j.Status)
	}
	j.Status = JobStatusError
	j.Content = partial
	j.ErrorMessage = message
	j.ErrorCode = code
	j.UpdatedAt = at.UTC()
	return nil
}
