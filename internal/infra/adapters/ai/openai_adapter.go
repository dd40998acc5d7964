package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"content-studio/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.GenerationProvider = (*OpenAIAdapter)(nil)

// OpenAIAdapter streams Chat Completions. A custom base URL points it at
// OpenAI-compatible gateways such as Metis or OpenRouter.
type OpenAIAdapter struct {
	client openai.Client
	name   string
	model  string
	maxOut int
}

func NewOpenAIAdapter(apiKey, model, baseURL string, maxOut int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries belong to the relay's retry policy
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...), name: "openai", model: model, maxOut: maxOut}, nil
}

func (o *OpenAIAdapter) Name() string { return o.name }

func (o *OpenAIAdapter) Available() bool { return o != nil }

func (o *OpenAIAdapter) GenerateStream(ctx context.Context, req adapter.GenerateRequest) (adapter.ProviderStream, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		msgs = append(msgs, openai.SystemMessage(s))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    modelOrDefault(req.Model, o.model),
		Messages: msgs,
	}
	if n := req.MaxTokens; n > 0 {
		params.MaxCompletionTokens = openai.Int(int64(n))
	} else if o.maxOut > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxOut))
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	s := &openaiStream{provider: o.name, stream: stream}
	// The HTTP status is only known after the first read.
	if !stream.Next() {
		if err := stream.Err(); err != nil {
			_ = stream.Close()
			return nil, toProviderError(o.name, err)
		}
		s.done = true
		return s, nil
	}
	first := stream.Current()
	s.pending = &first
	return s, nil
}

type openaiStream struct {
	provider string
	stream   *ssestream.Stream[openai.ChatCompletionChunk]
	pending  *openai.ChatCompletionChunk
	done     bool
}

func (s *openaiStream) Recv(ctx context.Context) (any, error) {
	if s.pending != nil {
		c := *s.pending
		s.pending = nil
		return c, nil
	}
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.stream.Next() {
		s.done = true
		if err := s.stream.Err(); err != nil {
			return nil, toProviderError(s.provider, err)
		}
		return nil, io.EOF
	}
	return s.stream.Current(), nil
}

func (s *openaiStream) Close() error { return s.stream.Close() }
