package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Client abstracts a chat-style LLM API.
type Client interface {
	// ChatCompletion sends a chat completion request and returns the response.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatCompletionStream sends a streaming chat completion request.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error)
}

// ChatRequest is a simplified single-turn chat request.
type ChatRequest struct {
	Model         string
	SystemMessage string
	UserMessage   string
	// Temperature is left to the client default when nil. A pointer keeps an
	// explicit zero distinguishable from "unset".
	Temperature *float64
	MaxTokens   int
}

// ChatResponse holds the result of a chat completion.
type ChatResponse struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int64
	OutputTokens int64
}

// StreamReader yields the text chunks of a streaming reply. Token usage is
// known only once the stream has been drained.
type StreamReader struct {
	recv  func() (string, error)
	close func()

	inputTokens  int64
	outputTokens int64
}

// NewStreamReader builds a StreamReader from a chunk source. recv must return
// io.EOF once the reply is complete.
func NewStreamReader(recv func() (string, error), closeFn func()) *StreamReader {
	if closeFn == nil {
		closeFn = func() {}
	}
	return &StreamReader{recv: recv, close: closeFn}
}

// Recv reads the next chunk from the stream.
func (s *StreamReader) Recv() (string, error) {
	return s.recv()
}

// SetUsage records the token usage reported by the provider. Providers report
// running totals, so later calls replace earlier ones.
func (s *StreamReader) SetUsage(input, output int64) {
	s.inputTokens = input
	s.outputTokens = output
}

// Usage returns the token usage seen so far.
func (s *StreamReader) Usage() (input, output int64) {
	return s.inputTokens, s.outputTokens
}

// Close closes the stream.
func (s *StreamReader) Close() {
	s.close()
}

// CollectStream reads all chunks from a StreamReader and returns the full content.
func CollectStream(sr *StreamReader) (string, error) {
	defer sr.Close()
	var b strings.Builder
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// UnsupportedProviderError is returned by New for an unknown provider name.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported LLM provider %q (supported: %s, %s)", e.Provider, ProviderOpenAI, ProviderAnthropic)
}

// New returns a Client for the named provider. An empty name selects OpenAI.
func New(provider string, opts ...Option) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(opts...), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts...), nil
	default:
		return nil, &UnsupportedProviderError{Provider: provider}
	}
}
