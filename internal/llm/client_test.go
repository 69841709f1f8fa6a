package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient()
	assert.Empty(t, client.cfg.model)
	assert.Nil(t, client.cfg.temperature)
	assert.Equal(t, DefaultMaxTokens, client.cfg.maxTokens)
}

func TestNewOpenAIClientWithAllOptions(t *testing.T) {
	client := NewOpenAIClient(
		WithBaseURL("https://api.example.com/v1"),
		WithAPIKey("sk-test"),
		WithModel("gpt-4o"),
		WithTemperature(0.5),
		WithMaxTokens(1024),
	)
	assert.Equal(t, "gpt-4o", client.cfg.model)
	require.NotNil(t, client.cfg.temperature)
	assert.Equal(t, 0.5, *client.cfg.temperature)
	assert.Equal(t, 1024, client.cfg.maxTokens)
}

func TestApplyDefaults(t *testing.T) {
	cfg := newClientConfig([]Option{WithModel("gpt-4o"), WithTemperature(0.8)})

	tests := []struct {
		name      string
		req       ChatRequest
		wantModel string
		wantTemp  float64
	}{
		{
			name:      "client defaults fill unset fields",
			req:       ChatRequest{UserMessage: "hello"},
			wantModel: "gpt-4o",
			wantTemp:  0.8,
		},
		{
			name:      "request values take precedence",
			req:       ChatRequest{Model: "gpt-4o-mini", Temperature: Float64Ptr(0.5)},
			wantModel: "gpt-4o-mini",
			wantTemp:  0.5,
		},
		{
			name:      "explicit zero temperature is kept",
			req:       ChatRequest{Temperature: Float64Ptr(0)},
			wantModel: "gpt-4o",
			wantTemp:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.applyDefaults(tt.req)
			assert.Equal(t, tt.wantModel, got.Model)
			require.NotNil(t, got.Temperature)
			assert.Equal(t, tt.wantTemp, *got.Temperature)
			assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
		})
	}
}

func TestApplyDefaultsDoesNotShareTemperature(t *testing.T) {
	cfg := newClientConfig([]Option{WithTemperature(0.3)})
	req := cfg.applyDefaults(ChatRequest{})
	*req.Temperature = 1
	assert.Equal(t, 0.3, *cfg.temperature)
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		wantType any
	}{
		{provider: "", wantType: &OpenAIClient{}},
		{provider: "openai", wantType: &OpenAIClient{}},
		{provider: "Anthropic", wantType: &AnthropicClient{}},
	}

	for _, tt := range tests {
		client, err := New(tt.provider, WithAPIKey("test"))
		require.NoError(t, err, tt.provider)
		assert.IsType(t, tt.wantType, client, tt.provider)
	}

	_, err := New("bedrock")
	var unsupported *UnsupportedProviderError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "bedrock", unsupported.Provider)
	assert.Contains(t, err.Error(), `"bedrock"`)
}

func TestCollectStream(t *testing.T) {
	chunks := []string{"Hel", "lo", "", "!"}
	closed := false
	sr := NewStreamReader(func() (string, error) {
		if len(chunks) == 0 {
			return "", io.EOF
		}
		c := chunks[0]
		chunks = chunks[1:]
		return c, nil
	}, func() { closed = true })

	got, err := CollectStream(sr)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", got)
	assert.True(t, closed)
}

func TestCollectStreamError(t *testing.T) {
	calls := 0
	sr := NewStreamReader(func() (string, error) {
		calls++
		if calls == 1 {
			return "partial", nil
		}
		return "", errors.New("connection reset")
	}, nil)

	got, err := CollectStream(sr)
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, "partial", got)
}

func TestOpenAIClientChatCompletion(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-2024",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"a\": 1}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL), WithAPIKey("sk-test"), WithModel("gpt-4o"), WithMaxTokens(256))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		SystemMessage: "system",
		UserMessage:   "user",
		Temperature:   Float64Ptr(0.25),
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a": 1}`, resp.Content)
	assert.Equal(t, "gpt-4o-2024", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(5), resp.OutputTokens)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.25, body["temperature"], 0.0001)
	assert.Equal(t, float64(256), body["max_tokens"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["content"])
}

func TestOpenAIClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "x", "choices": []}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{UserMessage: "hi"})
	assert.EqualError(t, err, "no choices returned")
}

func TestAnthropicClientChatCompletion(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "azure", r.Header.Get("X-Deployment"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "{\"rankings\": "}, {"type": "text", "text": "[]}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 40, "output_tokens": 8}
		}`)
	}))
	defer srv.Close()

	client := NewAnthropicClient(
		WithBaseURL(srv.URL),
		WithAPIKey("test-key"),
		WithModel("claude-haiku-4-5"),
		WithHeader("X-Deployment", "azure"),
	)
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		SystemMessage: "system",
		UserMessage:   "user",
		Temperature:   Float64Ptr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, `{"rankings": []}`, resp.Content)
	assert.Equal(t, "claude-haiku-4-5", resp.Model)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, int64(40), resp.InputTokens)
	assert.Equal(t, int64(8), resp.OutputTokens)

	assert.Equal(t, "claude-haiku-4-5", body["model"])
	assert.Equal(t, float64(DefaultMaxTokens), body["max_tokens"])
	assert.Equal(t, float64(0), body["temperature"])
}

func TestStreamReaderUsage(t *testing.T) {
	sr := NewStreamReader(func() (string, error) { return "", io.EOF }, nil)
	in, out := sr.Usage()
	assert.Zero(t, in)
	assert.Zero(t, out)

	sr.SetUsage(10, 2)
	sr.SetUsage(10, 7)
	in, out = sr.Usage()
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(7), out)
}

func TestOpenAIClientStreamReportsUsage(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"id":"c1","object":"chat.completion.chunk","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"{\"a\""}}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"gpt-4o","choices":[{"index":0,"delta":{"content":": 1}"},"finish_reason":"stop"}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":100,"completion_tokens":50,"total_tokens":150}}

data: [DONE]

`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL), WithModel("gpt-4o"))
	sr, err := client.ChatCompletionStream(context.Background(), ChatRequest{UserMessage: "user"})
	require.NoError(t, err)

	got, err := CollectStream(sr)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)

	in, out := sr.Usage()
	assert.Equal(t, int64(100), in)
	assert.Equal(t, int64(50), out)

	assert.Equal(t, true, body["stream"])
	streamOptions, ok := body["stream_options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, streamOptions["include_usage"])
}

func TestAnthropicClientStreamReportsUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5","content":[],"stop_reason":null,"usage":{"input_tokens":40,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"{\"b\": "}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"2}"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":9}}

event: message_stop
data: {"type":"message_stop"}

`)
	}))
	defer srv.Close()

	client := NewAnthropicClient(WithBaseURL(srv.URL), WithAPIKey("test-key"), WithModel("claude-haiku-4-5"))
	sr, err := client.ChatCompletionStream(context.Background(), ChatRequest{UserMessage: "user"})
	require.NoError(t, err)

	got, err := CollectStream(sr)
	require.NoError(t, err)
	assert.Equal(t, `{"b": 2}`, got)

	in, out := sr.Usage()
	assert.Equal(t, int64(40), in)
	assert.Equal(t, int64(9), out)
}
