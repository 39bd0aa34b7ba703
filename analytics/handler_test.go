package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// === in-memory collaborator fakes ===

type fakeSource struct {
	batch OrderedBatch
	err   error
}

func (f *fakeSource) Query(ctx context.Context, lookbackHours int) (OrderedBatch, error) {
	return f.batch, f.err
}

type fakeArtifacts struct {
	blobs map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{blobs: map[string][]byte{}}
}

func (f *fakeArtifacts) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.blobs[bucket+"/"+key]
	if !ok {
		return nil, &ArtifactError{Reason: fmt.Sprintf("artifact %s/%s not found", bucket, key)}
	}
	return data, nil
}

func (f *fakeArtifacts) Put(ctx context.Context, bucket, key string, data []byte) error {
	f.blobs[bucket+"/"+key] = data
	return nil
}

type fakeMetricSink struct {
	emitted []MetricDatum
	err     error
}

func (f *fakeMetricSink) Emit(ctx context.Context, namespace string, data []MetricDatum) error {
	if f.err != nil {
		return f.err
	}
	f.emitted = append(f.emitted, data...)
	return nil
}

type fakeAlertSink struct {
	published []AlertMessage
}

func (f *fakeAlertSink) Publish(ctx context.Context, subject string, message AlertMessage) error {
	f.published = append(f.published, message)
	return nil
}

func newTestHandlers(source MetricsSource) (*Handlers, *fakeMetricSink, *fakeAlertSink, *fakeArtifacts) {
	metrics := &fakeMetricSink{}
	alerts := &fakeAlertSink{}
	artifacts := newFakeArtifacts()
	h := &Handlers{
		Source:      source,
		Artifacts:   artifacts,
		Metrics:     metrics,
		Alerts:      alerts,
		Environment: "test",
	}
	return h, metrics, alerts, artifacts
}

// === Scan ===

func TestScan_EmptyMetricsIsSuccessWithZeroAnomalies(t *testing.T) {
	h, metrics, alerts, _ := newTestHandlers(&fakeSource{})

	result := h.Scan(context.Background(), ScanRequest{Sensitivity: "high"})
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 0, result.AnomaliesDetected)
	assert.Equal(t, "No metrics data found for analysis", result.Message)
	assert.Equal(t, "high", result.Sensitivity)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, metrics.emitted)
	assert.Empty(t, alerts.published)
}

func TestScan_HighSeverityAnomalyEmitsAndAlerts(t *testing.T) {
	// Half-accurate batch trips LOW_ACCURACY at HIGH severity plus the
	// per-content-type check, so both counter and value metrics flow.
	var batch MetricsBatch
	for i := 0; i < 100; i++ {
		batch = append(batch, makeRecord("w1", ContentText, 500, i < 50))
	}
	h, metrics, alerts, _ := newTestHandlers(&fakeSource{batch: batch.Ordered()})

	result := h.Scan(context.Background(), ScanRequest{Sensitivity: "medium"})
	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 2, result.AnomaliesDetected)
	assert.Contains(t, result.Message, "100 metrics datapoints")

	require.NotEmpty(t, metrics.emitted)
	var counterNames []string
	for _, d := range metrics.emitted {
		if d.Unit == "Count" {
			counterNames = append(counterNames, d.Name)
			assert.Equal(t, "test", d.Dimensions["Environment"])
		}
	}
	assert.Contains(t, counterNames, "AnomalyLOW_ACCURACY")
	assert.Contains(t, counterNames, "AnomalyCONTENT_TYPE_LOW_ACCURACY")

	require.Len(t, alerts.published, 1)
	msg := alerts.published[0]
	assert.Equal(t, "test", msg.Environment)
	assert.Contains(t, msg.Subject, "[TEST]")
	assert.Contains(t, msg.AlertSummary, "Low verification accuracy rate")
	// Only the HIGH-severity anomaly rides in the alert.
	require.Len(t, msg.Anomalies, 1)
	assert.Equal(t, AnomalyLowAccuracy, msg.Anomalies[0].Type)
	assert.WithinDuration(t, time.Now().UTC(), msg.Timestamp, time.Minute)
}

func TestScan_MediumOnlyAnomaliesDoNotAlert(t *testing.T) {
	// Accuracy 0.7: below the 0.75 floor but above 0.6, so MEDIUM only.
	var batch MetricsBatch
	for i := 0; i < 100; i++ {
		batch = append(batch, makeRecord("w1", ContentImage, 500, i < 70))
	}
	h, metrics, alerts, _ := newTestHandlers(&fakeSource{batch: batch.Ordered()})

	result := h.Scan(context.Background(), ScanRequest{Sensitivity: "low"})
	require.Equal(t, StatusOK, result.Status)
	assert.NotEmpty(t, metrics.emitted)
	assert.Empty(t, alerts.published, "MEDIUM anomalies must not alert")
}

func TestScan_EmissionFailureDoesNotBlockAlerting(t *testing.T) {
	var batch MetricsBatch
	for i := 0; i < 100; i++ {
		batch = append(batch, makeRecord("w1", ContentText, 500, i < 50))
	}
	h, metrics, alerts, _ := newTestHandlers(&fakeSource{batch: batch.Ordered()})
	metrics.err = errors.New("sink unavailable")

	result := h.Scan(context.Background(), ScanRequest{Sensitivity: "medium"})
	assert.Equal(t, StatusOK, result.Status)
	assert.Len(t, alerts.published, 1, "alerting proceeds despite emission failure")
}

func TestScan_SourceErrorIsStructuredFailure(t *testing.T) {
	h, _, _, _ := newTestHandlers(&fakeSource{err: errors.New("connection refused")})

	result := h.Scan(context.Background(), ScanRequest{Sensitivity: "medium"})
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "connection refused")
}

func TestScan_UnknownSensitivityDefaultsToMedium(t *testing.T) {
	h, _, _, _ := newTestHandlers(&fakeSource{})
	result := h.Scan(context.Background(), ScanRequest{Sensitivity: "paranoid"})
	assert.Equal(t, "medium", result.Sensitivity)
}

// === Score ===

func TestScore_EndToEndThroughArtifactStore(t *testing.T) {
	h, _, _, _ := newTestHandlers(&fakeSource{batch: noisyBatch(300, 40)})
	require.NoError(t, h.TrainAnomaly(context.Background(), 168, DefaultContamination, "models", "anomaly.json"))

	records := append([]MetricRecord(nil), noisyBatch(60, 41).Records()...)
	records[45].ResponseTimeMs = 600000
	records[45].Cost = 40.0

	result := h.Score(context.Background(), ScoreRequest{
		ModelBucket: "models",
		ModelKey:    "anomaly.json",
		Records:     records,
	})
	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, len(result.Anomalies), result.AnomalyCount)
	require.NotEmpty(t, result.Anomalies)

	found := false
	for _, a := range result.Anomalies {
		if a.Index == 45 {
			found = true
			assert.Equal(t, 600000.0, a.Metrics["response_time_ms"])
		}
	}
	assert.True(t, found, "planted outlier at index 45 must be reported")
}

func TestScore_MissingArtifactIsStructuredFailure(t *testing.T) {
	h, _, _, _ := newTestHandlers(&fakeSource{batch: noisyBatch(60, 42)})
	result := h.Score(context.Background(), ScoreRequest{ModelBucket: "models", ModelKey: "nope.json"})
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "not found")
}

func TestScore_WrongArtifactKindIsStructuredFailure(t *testing.T) {
	h, _, _, artifacts := newTestHandlers(&fakeSource{batch: noisyBatch(60, 43)})

	routing, err := NewTaskRouter().Train(routingFixture())
	require.NoError(t, err)
	data, err := MarshalRoutingModel(routing)
	require.NoError(t, err)
	require.NoError(t, artifacts.Put(context.Background(), "models", "anomaly.json", data))

	result := h.Score(context.Background(), ScoreRequest{ModelBucket: "models", ModelKey: "anomaly.json"})
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "kind mismatch")
}

// === Route ===

func TestRoute_EndToEndThroughArtifactStore(t *testing.T) {
	h, _, _, _ := newTestHandlers(&fakeSource{})
	require.NoError(t, h.TrainRouter(context.Background(), routingFixture(), "models", "router.json"))

	result := h.Route(context.Background(), RouteRequest{
		ModelBucket: "models",
		ModelKey:    "router.json",
		TaskFeatures: TaskFeatures{
			TaskID:               "task-9",
			ContentType:          ContentText,
			VerificationMethod:   MethodHuman,
			TaskComplexity:       0.2,
			ExpectedResponseTime: 500,
			RequiredConfidence:   0.7,
		},
	})
	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "task-9", result.TaskID)
	require.NotEmpty(t, result.BestWorkers)
	assert.Equal(t, "w1", result.BestWorkers[0])
	assert.LessOrEqual(t, len(result.BestWorkers), MaxRoutingCandidates)
}

func TestRoute_UnseenCategoryIsStructuredFailure(t *testing.T) {
	h, _, _, _ := newTestHandlers(&fakeSource{})
	require.NoError(t, h.TrainRouter(context.Background(), routingFixture(), "models", "router.json"))

	result := h.Route(context.Background(), RouteRequest{
		ModelBucket: "models",
		ModelKey:    "router.json",
		TaskFeatures: TaskFeatures{
			ContentType:        ContentType("hologram"),
			VerificationMethod: MethodHuman,
		},
	})
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "unseen value")
}
