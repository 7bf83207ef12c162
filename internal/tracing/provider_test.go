package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gxo-labs/stage0/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewProviderFromEnv_NoEndpointIsNoOp(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")

	p, err := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.True(t, p.IsEffectivelyNoOp())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderFromEnv_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "TRUE")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	p, err := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.True(t, p.IsEffectivelyNoOp())
}

func TestNewProviderFromEnv_UnsupportedProtocol(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")

	_, err := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported OTLP protocol")
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc , broken, =novalue, tenant=ci ")
	assert.Equal(t, map[string]string{"api-key": "abc", "tenant": "ci"}, got)
	assert.Empty(t, parseHeaders(""))
}

func TestParseTimeout(t *testing.T) {
	fallback := 7 * time.Second
	testCases := []struct {
		in   string
		want time.Duration
	}{
		{"", fallback},
		{"2500", 2500 * time.Millisecond},
		{"-1", fallback},
		{"3s", 3 * time.Second},
		{"soon", fallback},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, parseTimeout(tc.in, fallback), "input %q", tc.in)
	}
}

func TestStartEndSpan_NilTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), nil, "verify", attribute.String("path", "x"))
	require.NotNil(t, ctx)
	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })
}
