package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
)

func recordOne(t *testing.T, err error) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	RecordError(span, err)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func TestRecordError_RejectionLeavesStatusUnset(t *testing.T) {
	span := recordOne(t, apperr.Conflict("Observation has changed on the server."))

	assert.Equal(t, codes.Unset, span.Status().Code)
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "rejected", span.Events()[0].Name)
	assert.Contains(t, span.Events()[0].Attributes, attribute.String(attrRejection, "conflict"))
}

func TestRecordError_UnexpectedMarksFailure(t *testing.T) {
	span := recordOne(t, errors.New("connection reset"))

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "connection reset", span.Status().Description)
}

func TestRecordError_NilIsNoop(t *testing.T) {
	span := recordOne(t, nil)

	assert.Equal(t, codes.Unset, span.Status().Code)
	assert.Empty(t, span.Events())
}
