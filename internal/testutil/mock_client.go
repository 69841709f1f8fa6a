// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/giantswarm/template-eval/internal/llm"
)

// MockLLMClient is a configurable mock for llm.Client used across test packages.
// Replies are chosen in this order: Handler, Responses, Sequence, DefaultResponse.
type MockLLMClient struct {
	// Handler, when set, produces every reply.
	Handler func(req llm.ChatRequest) (string, error)

	// Responses maps user messages to canned responses.
	Responses map[string]string

	// Sequence is consumed one reply per call.
	Sequence []string

	// DefaultResponse is returned when nothing else matches.
	DefaultResponse string

	// Err fails every call when set.
	Err error

	// Stream enables ChatCompletionStream. The reply is delivered in
	// chunks of ChunkSize bytes (whole reply when zero).
	Stream    bool
	ChunkSize int

	mu          sync.Mutex
	calls       int
	streamCalls int
	requests    []llm.ChatRequest
}

func (m *MockLLMClient) reply(req llm.ChatRequest) (string, error) {
	m.requests = append(m.requests, req)

	if m.Err != nil {
		return "", m.Err
	}
	if m.Handler != nil {
		return m.Handler(req)
	}
	if resp, ok := m.Responses[req.UserMessage]; ok {
		return resp, nil
	}
	if len(m.Sequence) > 0 {
		resp := m.Sequence[0]
		m.Sequence = m.Sequence[1:]
		return resp, nil
	}
	if m.DefaultResponse != "" {
		return m.DefaultResponse, nil
	}
	return "mock response", nil
}

func (m *MockLLMClient) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	content, err := m.reply(req)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{
		Content:      content,
		Model:        req.Model,
		InputTokens:  int64(len(req.SystemMessage) + len(req.UserMessage)),
		OutputTokens: int64(len(content)),
	}, nil
}

func (m *MockLLMClient) ChatCompletionStream(_ context.Context, req llm.ChatRequest) (*llm.StreamReader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Stream {
		return nil, fmt.Errorf("streaming not supported in mock")
	}
	m.streamCalls++

	content, err := m.reply(req)
	if err != nil {
		return nil, err
	}

	size := m.ChunkSize
	if size <= 0 {
		size = len(content) + 1
	}
	input, output := int64(len(req.SystemMessage)+len(req.UserMessage)), int64(len(content))
	var sr *llm.StreamReader
	sr = llm.NewStreamReader(func() (string, error) {
		if content == "" {
			// Usage is reported with the end of the stream, as providers do.
			sr.SetUsage(input, output)
			return "", io.EOF
		}
		n := min(size, len(content))
		chunk := content[:n]
		content = content[n:]
		return chunk, nil
	}, nil)
	return sr, nil
}

// Calls returns the number of ChatCompletion invocations.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// StreamCalls returns the number of successful ChatCompletionStream invocations.
func (m *MockLLMClient) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}

// Requests returns every request seen so far.
func (m *MockLLMClient) Requests() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ChatRequest(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *MockLLMClient) LastRequest() llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.ChatRequest{}
	}
	return m.requests[len(m.requests)-1]
}
