package emit

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdverify/verify-analytics/analytics"
)

func TestPromSink_CountersAndValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPromSink(reg)
	ctx := context.Background()

	rate := 0.52
	data := []analytics.MetricDatum{
		{Name: "AnomalyLOW_ACCURACY", Dimensions: map[string]string{"Environment": "dev"}, Value: 1, Unit: "Count"},
		{Name: "LOW_ACCURACYValue", Dimensions: map[string]string{"Environment": "dev"}, Value: rate, Unit: "None"},
		{Name: "AnomalyCONTENT_TYPE_LOW_ACCURACY", Dimensions: map[string]string{"Environment": "dev", "ContentType": "video"}, Value: 1, Unit: "Count"},
	}
	require.NoError(t, sink.Emit(ctx, analytics.MetricNamespace, data))
	require.NoError(t, sink.Emit(ctx, analytics.MetricNamespace, data[:1]))

	count := testutil.ToFloat64(sink.counts.WithLabelValues("AnomalyLOW_ACCURACY", "dev", ""))
	assert.Equal(t, 2.0, count, "two emissions increment the counter twice")

	value := testutil.ToFloat64(sink.values.WithLabelValues("LOW_ACCURACYValue", "dev", ""))
	assert.Equal(t, rate, value)

	byContent := testutil.ToFloat64(sink.counts.WithLabelValues("AnomalyCONTENT_TYPE_LOW_ACCURACY", "dev", "video"))
	assert.Equal(t, 1.0, byContent)
}

func TestLogSinks_NeverFail(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, LogMetricSink{}.Emit(ctx, analytics.MetricNamespace, []analytics.MetricDatum{
		{Name: "AnomalyHIGH_RESPONSE_TIME", Value: 1, Unit: "Count"},
	}))
	assert.NoError(t, LogAlertSink{}.Publish(ctx, "subject", analytics.AlertMessage{
		Environment:  "dev",
		AlertSummary: "- something",
	}))
}
