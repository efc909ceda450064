package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ChatCompletionService is the subset of the OpenAI client used here.
type ChatCompletionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI generates text with the Chat Completions API. Requests are sent
// once; there is no retry policy.
type OpenAI struct {
	service ChatCompletionService
	model   string
}

// OpenAIOption configures the underlying client.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	service ChatCompletionService
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = u }
}

// WithService replaces the chat completion service, e.g. with a fake.
func WithService(s ChatCompletionService) OpenAIOption {
	return func(c *openAIConfig) { c.service = s }
}

// NewOpenAI returns a Generator for model. An API key is required unless a
// service is injected.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	var cfg openAIConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if model == "" {
		model = DefaultModel
	}

	if cfg.service == nil {
		if apiKey == "" {
			return nil, errors.New("openai API key is required")
		}
		reqOpts := []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		}
		if cfg.baseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
		}
		client := openai.NewClient(reqOpts...)
		cfg.service = &client.Chat.Completions
	}

	return &OpenAI{service: cfg.service, model: model}, nil
}

// Generate sends messages as a non-streaming chat completion and returns the
// first choice's content, trimmed.
func (o *OpenAI) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
	}
	resp, err := o.service.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
