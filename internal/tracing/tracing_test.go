package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestSetupStdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(Config{Enabled: true, ServiceName: "experiment-designer", Version: "test", Writer: &buf})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "parse")
	span.SetAttributes(AttrIntent.String("comparison"))
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, `"Name":"parse"`)
	assert.Contains(t, out, "expdesign.intent")
}

func TestNewProviderRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	p := NewProvider("experiment-designer", "test", sdktrace.WithSpanProcessor(rec))
	defer p.Shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "apply_template")
	RecordError(ctx, assert.AnError)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "apply_template", ended[0].Name())
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}
