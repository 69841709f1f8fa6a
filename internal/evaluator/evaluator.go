// Package evaluator runs template evaluations and component rankings against
// an LLM and turns the replies into structured, aggregated results.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/giantswarm/template-eval/internal/llm"
	"github.com/giantswarm/template-eval/internal/response"
	"github.com/giantswarm/template-eval/internal/telemetry"
)

// DefaultModel is used when neither the config nor the client names a model.
const DefaultModel = "gpt-4o"

// Config holds evaluation configuration.
type Config struct {
	// Provider labels token metrics; it does not select the client.
	Provider    string
	Model       string
	Repetitions int
	// Temperature defaults to 0 for reproducible judgments.
	Temperature *float64
	// Source names where reference templates came from.
	Source string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithParser sets the parser used for model replies.
func WithParser(p *response.Parser) Option {
	return func(e *Evaluator) {
		if p != nil {
			e.parser = p
		}
	}
}

// WithMetrics records token usage and parse outcomes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// Evaluator evaluates generated templates and ranks components using an LLM
// as judge.
type Evaluator struct {
	client  llm.Client
	parser  *response.Parser
	metrics *telemetry.Metrics
	config  Config
}

// New creates a new Evaluator.
func New(client llm.Client, config Config, opts ...Option) *Evaluator {
	if config.Repetitions <= 0 {
		config.Repetitions = 1
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == nil {
		config.Temperature = llm.Float64Ptr(0)
	}
	e := &Evaluator{
		client: client,
		parser: response.NewParser(),
		config: config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Evaluator) Config() Config {
	return e.config
}

// complete sends one system/user exchange, trying streaming first and
// falling back to a plain request.
func (e *Evaluator) complete(ctx context.Context, system, user string) (string, error) {
	req := llm.ChatRequest{
		Model:         e.config.Model,
		SystemMessage: system,
		UserMessage:   user,
		Temperature:   e.config.Temperature,
	}

	stream, err := e.client.ChatCompletionStream(ctx, req)
	if err == nil {
		result, streamErr := llm.CollectStream(stream)
		if streamErr == nil {
			input, output := stream.Usage()
			e.metrics.RecordTokens(ctx, e.config.Provider, e.config.Model, input, output)
			return result, nil
		}
		slog.Warn("streaming request failed, falling back to non-streaming", "error", streamErr)
	} else {
		slog.Debug("streaming not available, using non-streaming", "error", err)
	}

	resp, err := e.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	e.metrics.RecordTokens(ctx, e.config.Provider, e.config.Model, resp.InputTokens, resp.OutputTokens)

	return resp.Content, nil
}

// WriteJSON writes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
