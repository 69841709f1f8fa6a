package llm

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("template-eval/llm")

// startChatSpan opens a GenAI client span named "chat {model}" following the
// OpenTelemetry GenAI semantic conventions.
func startChatSpan(ctx context.Context, provider string, req ChatRequest) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.provider.name", provider),
		attribute.String("gen_ai.request.model", req.Model),
		attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
		attribute.String("langfuse.observation.type", "generation"),
	}
	if req.Temperature != nil {
		attrs = append(attrs, attribute.Float64("gen_ai.request.temperature", *req.Temperature))
	}

	ctx, span := tracer.Start(ctx, "chat "+req.Model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	input := []map[string]string{
		{"role": "system", "content": req.SystemMessage},
		{"role": "user", "content": req.UserMessage},
	}
	if data, err := json.Marshal(input); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(data)))
	}
	return ctx, span
}

// recordChatResponse annotates span with the reply and its token usage.
func recordChatResponse(span trace.Span, resp *ChatResponse) {
	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int64("gen_ai.usage.input_tokens", resp.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.OutputTokens),
	)
	if resp.FinishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{resp.FinishReason}))
	}

	output := []map[string]string{
		{"role": "assistant", "content": resp.Content},
	}
	if data, err := json.Marshal(output); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(data)))
	}
}

// recordStreamUsage annotates span with the usage collected from a stream.
func recordStreamUsage(span trace.Span, sr *StreamReader) {
	input, output := sr.Usage()
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", input),
		attribute.Int64("gen_ai.usage.output_tokens", output),
	)
}

func recordChatError(span trace.Span, errType string, err error) {
	span.SetAttributes(attribute.String("error.type", errType))
	if err != nil {
		span.RecordError(err)
	}
}
