// Package server holds the shared state and HTTP plumbing of the MCP server.
package server

import (
	"fmt"

	"github.com/giantswarm/template-eval/internal/evaluator"
	"github.com/giantswarm/template-eval/internal/llm"
	"github.com/giantswarm/template-eval/internal/response"
	"github.com/giantswarm/template-eval/internal/telemetry"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	// LLMClient answers evaluation and ranking requests. Tools that need a
	// model fail when it is nil; prompt and parse tools work without it.
	LLMClient llm.Client

	// Evaluation holds the defaults for evaluate_template and rank_components.
	Evaluation evaluator.Config

	Parser  *response.Parser
	Metrics *telemetry.Metrics

	ReferencesDir string // external reference templates directory (optional)
	OutputDir     string
}

// ResponseParser returns the configured parser, or the default one.
func (sc *ServerContext) ResponseParser() *response.Parser {
	if sc.Parser == nil {
		return response.NewParser()
	}
	return sc.Parser
}

// NewEvaluator builds an evaluator from the server defaults. A non-empty
// model or a positive repetitions count overrides the default.
func (sc *ServerContext) NewEvaluator(model string, repetitions int) (*evaluator.Evaluator, error) {
	if sc.LLMClient == nil {
		return nil, fmt.Errorf("LLM client is not configured")
	}

	cfg := sc.Evaluation
	if model != "" {
		cfg.Model = model
	}
	if repetitions > 0 {
		cfg.Repetitions = repetitions
	}

	return evaluator.New(sc.LLMClient, cfg,
		evaluator.WithParser(sc.ResponseParser()),
		evaluator.WithMetrics(sc.Metrics),
	), nil
}
