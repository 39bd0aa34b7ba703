package analytics

// AnomalyType identifies the pattern a detector flagged.
type AnomalyType string

const (
	AnomalyHighResponseTime       AnomalyType = "HIGH_RESPONSE_TIME"
	AnomalyLowAccuracy            AnomalyType = "LOW_ACCURACY"
	AnomalyContentTypeLowAccuracy AnomalyType = "CONTENT_TYPE_LOW_ACCURACY"
)

// Severity ranks an anomaly for alerting. Only HIGH anomalies trigger
// the alert sink.
type Severity string

const (
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Anomaly is one flagged pattern from a detection run. Anomalies are
// created per run and forwarded to the metric and alert sinks; they are
// never persisted by this package.
//
// Not every field is populated for every type: HIGH_RESPONSE_TIME carries
// Count, Threshold, Average and AffectedWorkers; the accuracy types carry
// Value and Threshold; CONTENT_TYPE_LOW_ACCURACY additionally carries
// ContentType and Count.
type Anomaly struct {
	Type            AnomalyType `json:"type"`
	Severity        Severity    `json:"severity"`
	Message         string      `json:"message"`
	Count           int         `json:"count,omitempty"`
	Threshold       float64     `json:"threshold,omitempty"`
	Average         float64     `json:"average,omitempty"`
	Value           *float64    `json:"value,omitempty"`
	AffectedWorkers int         `json:"affectedWorkers,omitempty"`
	ContentType     ContentType `json:"contentType,omitempty"`
}

// HasValue reports whether the anomaly carries a numeric value metric.
func (a Anomaly) HasValue() bool { return a.Value != nil }

// HighSeverity filters anomalies down to the HIGH entries, preserving order.
func HighSeverity(anomalies []Anomaly) []Anomaly {
	high := make([]Anomaly, 0)
	for _, a := range anomalies {
		if a.Severity == SeverityHigh {
			high = append(high, a)
		}
	}
	return high
}
