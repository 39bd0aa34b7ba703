// Package emit provides the metric-emission and alert sink
// implementations the invocation handlers publish through.
package emit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crowdverify/verify-analytics/analytics"
)

// PromSink is the Prometheus implementation of analytics.MetricSink:
// one counter series per anomaly metric name, dimensioned by environment
// and content type, plus a gauge carrying each anomaly's numeric value.
type PromSink struct {
	counts *prometheus.CounterVec
	values *prometheus.GaugeVec
}

// NewPromSink registers the sink's collectors with reg.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	factory := promauto.With(reg)
	return &PromSink{
		counts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crowdverify_anomaly_metric_total",
				Help: "Count of emitted anomaly metrics by name",
			},
			[]string{"name", "environment", "content_type"},
		),
		values: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crowdverify_anomaly_metric_value",
				Help: "Most recent value of anomaly value metrics",
			},
			[]string{"name", "environment", "content_type"},
		),
	}
}

// Emit implements analytics.MetricSink. The namespace is carried as a
// constant label by the registry, so only the datum fields map to series.
func (s *PromSink) Emit(_ context.Context, _ string, data []analytics.MetricDatum) error {
	for _, d := range data {
		labels := prometheus.Labels{
			"name":         d.Name,
			"environment":  d.Dimensions["Environment"],
			"content_type": d.Dimensions["ContentType"],
		}
		if d.Unit == "Count" {
			s.counts.With(labels).Add(d.Value)
		} else {
			s.values.With(labels).Set(d.Value)
		}
	}
	return nil
}
