package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatService struct {
	resp   *openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
	calls  int
}

func (f *fakeChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.calls++
	f.params = params
	return f.resp, f.err
}

func completion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAI("", "gpt-4o-mini")
	require.Error(t, err)

	g, err := NewOpenAI("", "", WithService(&fakeChatService{}))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.model)
}

func TestGenerateTrimsFirstChoice(t *testing.T) {
	t.Parallel()

	svc := &fakeChatService{resp: completion("  true\n")}
	g, err := NewOpenAI("", "test-model", WithService(svc))
	require.NoError(t, err)

	got, err := g.Generate(context.Background(), []Message{System("judge"), User("is it?")})
	require.NoError(t, err)
	assert.Equal(t, "true", got)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, openai.ChatModel("test-model"), svc.params.Model)
	assert.Len(t, svc.params.Messages, 2)
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		svc     *fakeChatService
		wantErr error
	}{
		{name: "no choices", svc: &fakeChatService{resp: &openai.ChatCompletion{}}, wantErr: ErrNoChoices},
		{name: "nil response", svc: &fakeChatService{}, wantErr: ErrNoChoices},
		{name: "transport", svc: &fakeChatService{err: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewOpenAI("", "m", WithService(tt.svc))
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), []Message{User("x")})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, tt.svc.calls, "requests are never retried")
		})
	}
}

func TestGenerateRejectsEmptyMessages(t *testing.T) {
	t.Parallel()

	g, err := NewOpenAI("", "m", WithService(&fakeChatService{}))
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), nil)
	assert.Error(t, err)
}

func TestGenerateOverHTTP(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" false "}}]}`)
	}))
	defer srv.Close()

	g, err := NewOpenAI("sk-test", "m", WithBaseURL(srv.URL))
	require.NoError(t, err)

	got, err := g.Generate(context.Background(), []Message{System("s"), User("u")})
	require.NoError(t, err)
	assert.Equal(t, "false", got)
	assert.Equal(t, "m", body["model"])
	assert.NotEqual(t, true, body["stream"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestGenerateOverHTTPServerError(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewOpenAI("sk-test", "m", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), []Message{User("u")})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
