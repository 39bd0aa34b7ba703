package analytics

import (
	"context"
	"time"
)

// MetricsSource is the external store of verification metrics. The core
// only needs recency filtering; query mechanics belong to the
// implementation (see store.MetricsDB for the SQLite one).
type MetricsSource interface {
	Query(ctx context.Context, lookbackHours int) (OrderedBatch, error)
}

// ArtifactStore is the external blob store for serialized model bundles,
// keyed by (bucket, key). Versioning and atomicity are the store's
// responsibility; the core loads artifacts fresh per invocation and
// treats them as read-only.
type ArtifactStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte) error
}

// MetricDatum is one emitted measurement.
type MetricDatum struct {
	Name       string
	Dimensions map[string]string
	Value      float64
	Unit       string
}

// MetricSink receives per-anomaly counters and value metrics.
type MetricSink interface {
	Emit(ctx context.Context, namespace string, data []MetricDatum) error
}

// AlertMessage is the structured notification sent when high-severity
// anomalies exist.
type AlertMessage struct {
	Subject      string    `json:"subject"`
	Environment  string    `json:"environment"`
	Timestamp    time.Time `json:"timestamp"`
	Anomalies    []Anomaly `json:"anomalies"`
	AlertSummary string    `json:"alertSummary"`
}

// AlertSink delivers alert messages to operators.
type AlertSink interface {
	Publish(ctx context.Context, subject string, message AlertMessage) error
}
