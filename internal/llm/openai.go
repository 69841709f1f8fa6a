package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using the OpenAI-compatible API.
// Works with OpenAI, Azure OpenAI and self-hosted vLLM endpoints.
type OpenAIClient struct {
	client *openai.Client
	cfg    *clientConfig
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	cfg := newClientConfig(opts)

	config := openai.DefaultConfig(cfg.apiKey)
	if cfg.baseURL != "" {
		config.BaseURL = cfg.baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
	}
}

func (c *OpenAIClient) request(req ChatRequest, stream bool) openai.ChatCompletionRequest {
	r := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: req.UserMessage},
		},
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if stream {
		// Usage arrives in a final chunk without choices.
		r.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	if req.Temperature != nil {
		r.Temperature = float32(*req.Temperature)
	}
	return r
}

// ChatCompletion sends a non-streaming chat completion request.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req = c.cfg.applyDefaults(req)

	ctx, span := startChatSpan(ctx, ProviderOpenAI, req)
	defer span.End()

	resp, err := c.client.CreateChatCompletion(ctx, c.request(req, false))
	if err != nil {
		recordChatError(span, "api_error", err)
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		recordChatError(span, "empty_response", nil)
		return nil, fmt.Errorf("no choices returned")
	}

	out := &ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}
	recordChatResponse(span, out)
	return out, nil
}

// ChatCompletionStream sends a streaming chat completion request. The span
// stays open until the stream is closed.
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	req = c.cfg.applyDefaults(req)

	ctx, span := startChatSpan(ctx, ProviderOpenAI, req)

	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(req, true))
	if err != nil {
		recordChatError(span, "api_error", err)
		span.End()
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}

	var sr *StreamReader
	sr = NewStreamReader(
		func() (string, error) {
			resp, err := stream.Recv()
			if err != nil {
				return "", err
			}
			if resp.Usage != nil {
				sr.SetUsage(int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
			}
			if len(resp.Choices) > 0 {
				return resp.Choices[0].Delta.Content, nil
			}
			return "", nil
		},
		func() {
			stream.Close()
			recordStreamUsage(span, sr)
			span.End()
		},
	)
	return sr, nil
}
