package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MetricNamespace is the namespace anomaly counters are emitted under.
const MetricNamespace = "CrowdVerify/AnomalyDetection"

// Status values for invocation results.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Handlers wires the analytical components to their external
// collaborators. All collaborators are injected; lifecycle is owned by
// the caller, which makes in-memory fakes trivial in tests. Each
// invocation runs to completion synchronously with no shared mutable
// state across invocations.
type Handlers struct {
	Source      MetricsSource
	Artifacts   ArtifactStore
	Metrics     MetricSink
	Alerts      AlertSink
	Environment string
}

// ScanRequest triggers a threshold anomaly scan.
type ScanRequest struct {
	Sensitivity string `json:"sensitivity"`
}

// ScanResult is the structured outcome of a scan invocation. Empty
// metrics and zero anomalies share the same success shape: both report
// StatusOK with AnomaliesDetected zero.
type ScanResult struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	AnomaliesDetected int    `json:"anomaliesDetected"`
	Sensitivity       string `json:"sensitivity"`
	RunID             string `json:"runId"`
}

// Scan queries recent metrics at the sensitivity's lookback, runs the
// threshold detector, forwards anomalies to the metric sink and alerts on
// high severity. All errors are caught, logged and returned as a
// structured failure; there are no internal retries.
func (h *Handlers) Scan(ctx context.Context, req ScanRequest) ScanResult {
	runID := uuid.NewString()
	sensitivity := Sensitivity(req.Sensitivity).Normalize()
	log := logrus.WithFields(logrus.Fields{"run_id": runID, "sensitivity": sensitivity})

	batch, err := h.Source.Query(ctx, sensitivity.LookbackHours())
	if err != nil {
		log.Errorf("Loading metrics failed: %v", err)
		return ScanResult{Status: StatusError, Message: fmt.Sprintf("loading metrics: %v", err), Sensitivity: string(sensitivity), RunID: runID}
	}
	if batch.Len() == 0 {
		// Same success shape as a clean scan. Logged so an upstream
		// pipeline outage is still visible in the logs.
		log.Info("No metrics data found for analysis")
		return ScanResult{
			Status:      StatusOK,
			Message:     "No metrics data found for analysis",
			Sensitivity: string(sensitivity),
			RunID:       runID,
		}
	}

	detector := NewThresholdDetector()
	anomalies := detector.Detect(batch.Records(), sensitivity)
	log.Infof("Analyzed %d metrics datapoints, %d anomalies", batch.Len(), len(anomalies))

	if len(anomalies) > 0 {
		// Emission failure is logged but never blocks alerting.
		if err := h.Metrics.Emit(ctx, MetricNamespace, anomalyMetrics(anomalies, h.Environment)); err != nil {
			log.Errorf("Emitting anomaly metrics failed: %v", err)
		}
		if high := HighSeverity(anomalies); len(high) > 0 {
			if err := h.publishAlert(ctx, high); err != nil {
				log.Errorf("Publishing anomaly alert failed: %v", err)
			}
		}
	}

	return ScanResult{
		Status:            StatusOK,
		Message:           fmt.Sprintf("Analyzed %d metrics datapoints", batch.Len()),
		AnomaliesDetected: len(anomalies),
		Sensitivity:       string(sensitivity),
		RunID:             runID,
	}
}

// ScoreRequest applies a trained anomaly model to metrics. Records may be
// supplied inline; otherwise the source is queried over LookbackHours.
type ScoreRequest struct {
	ModelBucket   string         `json:"model_bucket"`
	ModelKey      string         `json:"model_key"`
	Records       []MetricRecord `json:"records,omitempty"`
	LookbackHours int            `json:"lookback_hours,omitempty"`
}

// ScoredRecord is one flagged sample from a model scoring run.
type ScoredRecord struct {
	Index     int                `json:"index"`
	Score     float64            `json:"score"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// ScoreResult is the structured outcome of a model scoring invocation.
type ScoreResult struct {
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	AnomalyCount int            `json:"anomaly_count"`
	Anomalies    []ScoredRecord `json:"anomalies"`
	RunID        string         `json:"runId"`
}

// Score loads the anomaly model artifact, scores the batch and reports
// the flagged samples with their scores and feature snapshots.
func (h *Handlers) Score(ctx context.Context, req ScoreRequest) ScoreResult {
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	batch, err := h.resolveBatch(ctx, req.Records, req.LookbackHours)
	if err != nil {
		log.Errorf("Resolving scoring batch failed: %v", err)
		return ScoreResult{Status: StatusError, Message: err.Error(), Anomalies: []ScoredRecord{}, RunID: runID}
	}

	data, err := h.Artifacts.Get(ctx, req.ModelBucket, req.ModelKey)
	if err != nil {
		log.Errorf("Loading anomaly model failed: %v", err)
		return ScoreResult{Status: StatusError, Message: fmt.Sprintf("loading model: %v", err), Anomalies: []ScoredRecord{}, RunID: runID}
	}
	model, err := UnmarshalAnomalyModel(data)
	if err != nil {
		log.Errorf("Decoding anomaly model failed: %v", err)
		return ScoreResult{Status: StatusError, Message: err.Error(), Anomalies: []ScoredRecord{}, RunID: runID}
	}

	detector := NewModelDetector(model.Forest.Contamination)
	flags, scores, err := detector.Score(batch, model)
	if err != nil {
		log.Errorf("Scoring failed: %v", err)
		return ScoreResult{Status: StatusError, Message: err.Error(), Anomalies: []ScoredRecord{}, RunID: runID}
	}

	records := batch.Records()
	flagged := []ScoredRecord{}
	for i, isAnomaly := range flags {
		if !isAnomaly {
			continue
		}
		recIdx := i + ScorableFrom()
		rec := records[recIdx]
		flagged = append(flagged, ScoredRecord{
			Index:     recIdx,
			Score:     scores[i],
			Timestamp: rec.Timestamp,
			Metrics: map[string]float64{
				"response_time_ms": float64(rec.ResponseTimeMs),
				"confidence_score": rec.ConfidenceScore,
				"cost":             rec.Cost,
			},
		})
	}
	log.Infof("Scored %d records, flagged %d", len(flags), len(flagged))

	return ScoreResult{
		Status:       StatusOK,
		AnomalyCount: len(flagged),
		Anomalies:    flagged,
		RunID:        runID,
	}
}

// RouteRequest asks for ranked workers for one task.
type RouteRequest struct {
	ModelBucket  string       `json:"model_bucket"`
	ModelKey     string       `json:"model_key"`
	TaskFeatures TaskFeatures `json:"task_features"`
}

// RouteResult is the structured outcome of a routing invocation.
type RouteResult struct {
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	BestWorkers []string `json:"best_workers,omitempty"`
	TaskID      string   `json:"task_id,omitempty"`
	RunID       string   `json:"runId"`
}

// Route loads the routing model artifact and returns up to three ranked
// workers for the task.
func (h *Handlers) Route(ctx context.Context, req RouteRequest) RouteResult {
	runID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{"run_id": runID, "task_id": req.TaskFeatures.TaskID})

	data, err := h.Artifacts.Get(ctx, req.ModelBucket, req.ModelKey)
	if err != nil {
		log.Errorf("Loading routing model failed: %v", err)
		return RouteResult{Status: StatusError, Message: fmt.Sprintf("loading model: %v", err), RunID: runID}
	}
	model, err := UnmarshalRoutingModel(data)
	if err != nil {
		log.Errorf("Decoding routing model failed: %v", err)
		return RouteResult{Status: StatusError, Message: err.Error(), RunID: runID}
	}

	workers, err := model.Predict(req.TaskFeatures)
	if err != nil {
		log.Errorf("Routing prediction failed: %v", err)
		return RouteResult{Status: StatusError, Message: err.Error(), RunID: runID}
	}

	return RouteResult{
		Status:      StatusOK,
		BestWorkers: workers,
		TaskID:      req.TaskFeatures.TaskID,
		RunID:       runID,
	}
}

// TrainAnomaly trains the model-based detector on metrics from the source
// and saves the artifact. Offline path; returns a plain error for the CLI
// to surface.
func (h *Handlers) TrainAnomaly(ctx context.Context, lookbackHours int, contamination float64, bucket, key string) error {
	batch, err := h.Source.Query(ctx, lookbackHours)
	if err != nil {
		return fmt.Errorf("loading training metrics: %w", err)
	}
	model, err := NewModelDetector(contamination).Train(batch)
	if err != nil {
		return err
	}
	data, err := MarshalAnomalyModel(model)
	if err != nil {
		return err
	}
	if err := h.Artifacts.Put(ctx, bucket, key, data); err != nil {
		return fmt.Errorf("saving anomaly model: %w", err)
	}
	logrus.Infof("Trained anomaly model on %d records, saved to %s/%s", batch.Len(), bucket, key)
	return nil
}

// TrainRouter trains the routing classifier on the examples and saves the
// artifact.
func (h *Handlers) TrainRouter(ctx context.Context, examples []RoutingExample, bucket, key string) error {
	model, err := NewTaskRouter().Train(examples)
	if err != nil {
		return err
	}
	data, err := MarshalRoutingModel(model)
	if err != nil {
		return err
	}
	if err := h.Artifacts.Put(ctx, bucket, key, data); err != nil {
		return fmt.Errorf("saving routing model: %w", err)
	}
	logrus.Infof("Trained routing model on %d examples, saved to %s/%s", len(examples), bucket, key)
	return nil
}

func (h *Handlers) resolveBatch(ctx context.Context, records []MetricRecord, lookbackHours int) (OrderedBatch, error) {
	if len(records) > 0 {
		return MetricsBatch(records).Ordered(), nil
	}
	if lookbackHours <= 0 {
		lookbackHours = SensitivityMedium.LookbackHours()
	}
	return h.Source.Query(ctx, lookbackHours)
}

func (h *Handlers) publishAlert(ctx context.Context, high []Anomaly) error {
	subject := fmt.Sprintf("[%s] Verification System Anomalies Detected", strings.ToUpper(h.Environment))
	lines := make([]string, len(high))
	for i, a := range high {
		lines[i] = "- " + a.Message
	}
	return h.Alerts.Publish(ctx, subject, AlertMessage{
		Subject:      subject,
		Environment:  h.Environment,
		Timestamp:    time.Now().UTC(),
		Anomalies:    high,
		AlertSummary: strings.Join(lines, "\n"),
	})
}

// anomalyMetrics converts anomalies into sink data: one counter per
// anomaly plus a value metric for anomalies carrying a numeric value,
// dimensioned by environment and, where applicable, content type.
func anomalyMetrics(anomalies []Anomaly, environment string) []MetricDatum {
	var data []MetricDatum
	for _, a := range anomalies {
		dims := map[string]string{"Environment": environment}
		if a.ContentType != "" {
			dims["ContentType"] = string(a.ContentType)
		}
		data = append(data, MetricDatum{
			Name:       fmt.Sprintf("Anomaly%s", a.Type),
			Dimensions: dims,
			Value:      1,
			Unit:       "Count",
		})
		if a.HasValue() {
			data = append(data, MetricDatum{
				Name:       fmt.Sprintf("%sValue", a.Type),
				Dimensions: dims,
				Value:      *a.Value,
				Unit:       "None",
			})
		}
	}
	return data
}
