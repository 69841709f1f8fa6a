package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: map[string]string{}},
		{name: "single", raw: "Authorization=Basic abc", want: map[string]string{"Authorization": "Basic abc"}},
		{
			name: "multiple with spaces",
			raw:  " a = 1 , b=2 ",
			want: map[string]string{"a": "1", "b": "2"},
		},
		{name: "value containing equals", raw: "token=a=b", want: map[string]string{"token": "a=b"}},
		{name: "malformed pairs skipped", raw: "novalue,=x,ok=1", want: map[string]string{"ok": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHeaders(tt.raw))
		})
	}
}

func TestInitWithoutEndpoint(t *testing.T) {
	tel, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, tel.Enabled())
	require.NotNil(t, tel.Metrics)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		tel.Metrics.RecordTokens(ctx, "openai", "gpt-4o", 10, 5)
		tel.Metrics.RecordReply(ctx, "evaluation", OutcomeParsed)
		tel.Metrics.RecordCoverage(ctx, "gpt-4o", 92.5)
		tel.Shutdown(ctx)
	})
}

func TestInitInvalidEndpoint(t *testing.T) {
	_, err := Init(context.Background(), Config{Endpoint: "localhost:4318"})
	assert.Error(t, err)

	_, err = Init(context.Background(), Config{Endpoint: "http://[::1"})
	assert.ErrorContains(t, err, "invalid endpoint URL")
}

func TestNilMetricsAndTelemetry(t *testing.T) {
	var m *Metrics
	var tel *Telemetry
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordTokens(ctx, "anthropic", "claude", 1, 1)
		m.RecordReply(ctx, "ranking", OutcomeFallback)
		m.RecordCoverage(ctx, "claude", 50)
		tel.Shutdown(ctx)
	})
	assert.False(t, tel.Enabled())
}
