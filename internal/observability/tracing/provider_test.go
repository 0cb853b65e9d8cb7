package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProviderDisabledRecordsLocalSpans(t *testing.T) {
	tp, err := NewProvider(nil, Config{Enabled: false, SamplingRatio: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := NewTracer(tp).Start(context.Background(), "test")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
}

func TestSamplingRatioBounds(t *testing.T) {
	assert.Equal(t, float64(0), samplingRatio(-1))
	assert.Equal(t, float64(1), samplingRatio(3))
	assert.Equal(t, 0.25, samplingRatio(0.25))
	assert.Equal(t, "chargeengine", serviceName("  "))
}
