package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "template-eval"

// Outcomes recorded for each parsed reply.
const (
	OutcomeParsed   = "parsed"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics holds the metric instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter

	// Replies partitioned by kind (evaluation, ranking) and outcome.
	Replies  metric.Int64Counter
	Coverage metric.Float64Histogram
}

// NewMetrics creates all metric instruments from the global MeterProvider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFor(otel.GetMeterProvider())
}

// NewMetricsFor creates all metric instruments from mp.
func NewMetricsFor(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.Replies, err = meter.Int64Counter("replies.total",
		metric.WithDescription("Model replies partitioned by kind and parse outcome"))
	if err != nil {
		return nil, err
	}

	m.Coverage, err = meter.Float64Histogram("evaluation.coverage",
		metric.WithDescription("Coverage percentage reported per evaluation run"),
		metric.WithUnit("%"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}

// RecordReply records one parsed reply.
func (m *Metrics) RecordReply(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	m.Replies.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reply.kind", kind),
		attribute.String("reply.outcome", outcome),
	))
}

// RecordCoverage records the coverage percentage of one evaluation run.
func (m *Metrics) RecordCoverage(ctx context.Context, model string, pct float64) {
	if m == nil {
		return
	}
	m.Coverage.Record(ctx, pct, metric.WithAttributes(attribute.String("llm.model", model)))
}
