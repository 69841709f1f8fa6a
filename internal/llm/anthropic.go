package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client using the Anthropic Messages API.
// Works with both the direct Anthropic API and Azure AI Foundry.
type AnthropicClient struct {
	client anthropic.Client
	cfg    *clientConfig
}

// NewAnthropicClient creates a new Anthropic client. Without WithAPIKey the
// SDK reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicClient(opts ...Option) *AnthropicClient {
	cfg := newClientConfig(opts)

	var reqOpts []option.RequestOption
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	}
	for k, v := range cfg.extraHeaders {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		cfg:    cfg,
	}
}

func (c *AnthropicClient) params(req ChatRequest) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)),
		},
	}
	if req.SystemMessage != "" {
		p.System = []anthropic.TextBlockParam{{Text: req.SystemMessage}}
	}
	if req.Temperature != nil {
		p.Temperature = anthropic.Float(*req.Temperature)
	}
	return p
}

// ChatCompletion sends a single Messages API request.
func (c *AnthropicClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req = c.cfg.applyDefaults(req)

	ctx, span := startChatSpan(ctx, ProviderAnthropic, req)
	defer span.End()

	resp, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		recordChatError(span, "api_error", err)
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		recordChatError(span, "empty_response", nil)
		return nil, fmt.Errorf("anthropic API returned empty response")
	}

	out := &ChatResponse{
		Content:      text.String(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	recordChatResponse(span, out)
	return out, nil
}

// ChatCompletionStream streams text deltas from the Messages API. The span
// stays open until the stream is closed.
func (c *AnthropicClient) ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	req = c.cfg.applyDefaults(req)

	ctx, span := startChatSpan(ctx, ProviderAnthropic, req)
	stream := c.client.Messages.NewStreaming(ctx, c.params(req))
	if err := stream.Err(); err != nil {
		recordChatError(span, "api_error", err)
		span.End()
		return nil, fmt.Errorf("anthropic stream failed: %w", err)
	}

	var (
		sr            *StreamReader
		input, output int64
	)
	sr = NewStreamReader(
		func() (string, error) {
			for stream.Next() {
				switch event := stream.Current().AsAny().(type) {
				case anthropic.MessageStartEvent:
					input = event.Message.Usage.InputTokens
					output = event.Message.Usage.OutputTokens
					sr.SetUsage(input, output)
				case anthropic.MessageDeltaEvent:
					// Delta usage is cumulative.
					if event.Usage.InputTokens > 0 {
						input = event.Usage.InputTokens
					}
					output = event.Usage.OutputTokens
					sr.SetUsage(input, output)
				case anthropic.ContentBlockDeltaEvent:
					if text, ok := event.Delta.AsAny().(anthropic.TextDelta); ok {
						return text.Text, nil
					}
				}
			}
			if err := stream.Err(); err != nil {
				recordChatError(span, "api_error", err)
				return "", fmt.Errorf("anthropic stream failed: %w", err)
			}
			return "", io.EOF
		},
		func() {
			_ = stream.Close()
			recordStreamUsage(span, sr)
			span.End()
		},
	)
	return sr, nil
}
