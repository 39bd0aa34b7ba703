package analytics

import (
	"fmt"
	"sort"
	"time"
)

// ContentType is the kind of content a verification task covers.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

// VerificationMethod is how a task was verified.
type VerificationMethod string

const (
	MethodHuman VerificationMethod = "human"
	MethodAI    VerificationMethod = "ai"
)

// MetricRecord is one verification outcome as reported by the pipeline.
// Records are immutable once produced; detectors never modify them.
type MetricRecord struct {
	TaskID             string             `json:"task_id" db:"task_id"`
	WorkerID           string             `json:"worker_id" db:"worker_id"`
	ContentType        ContentType        `json:"content_type" db:"content_type"`
	VerificationMethod VerificationMethod `json:"verification_method" db:"verification_method"`
	ConfidenceScore    float64            `json:"confidence_score" db:"confidence_score"`
	ResponseTimeMs     int64              `json:"response_time_ms" db:"response_time_ms"`
	IsAccurate         bool               `json:"is_accurate" db:"is_accurate"`
	Cost               float64            `json:"cost" db:"cost"`
	Timestamp          time.Time          `json:"timestamp" db:"timestamp"`
}

// Validate checks field ranges on a single record.
func (r MetricRecord) Validate() error {
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return &ValidationError{Field: "confidence_score", Reason: fmt.Sprintf("must be in [0,1], got %v", r.ConfidenceScore)}
	}
	if r.ResponseTimeMs < 0 {
		return &ValidationError{Field: "response_time_ms", Reason: fmt.Sprintf("must be non-negative, got %d", r.ResponseTimeMs)}
	}
	if r.Cost < 0 {
		return &ValidationError{Field: "cost", Reason: fmt.Sprintf("must be non-negative, got %v", r.Cost)}
	}
	return nil
}

// MetricsBatch is a collection of records over a lookback window.
// No ordering guarantee; see OrderedBatch for the rolling-window paths.
type MetricsBatch []MetricRecord

// OrderedBatch is a MetricsBatch guaranteed to be in ascending timestamp
// order. Rolling-window feature computation requires this ordering, so the
// guarantee is carried in the type rather than assumed at call sites.
// Construct via NewOrderedBatch or MetricsBatch.Ordered.
type OrderedBatch struct {
	records []MetricRecord
}

// NewOrderedBatch wraps records that are already in ascending timestamp
// order. Returns a ValidationError if the ordering does not hold.
func NewOrderedBatch(records []MetricRecord) (OrderedBatch, error) {
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			return OrderedBatch{}, &ValidationError{
				Field:  "timestamp",
				Reason: fmt.Sprintf("records out of temporal order at index %d", i),
			}
		}
	}
	return OrderedBatch{records: records}, nil
}

// Ordered returns a copy of the batch sorted by ascending timestamp.
// The receiver is left untouched.
func (b MetricsBatch) Ordered() OrderedBatch {
	sorted := make([]MetricRecord, len(b))
	copy(sorted, b)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return OrderedBatch{records: sorted}
}

// Records returns the underlying records in temporal order.
// Callers must not modify the returned slice.
func (b OrderedBatch) Records() []MetricRecord { return b.records }

// Len returns the number of records in the batch.
func (b OrderedBatch) Len() int { return len(b.records) }
