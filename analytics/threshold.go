package analytics

import (
	"fmt"
	"strings"
)

// Sensitivity tunes how aggressively the threshold detector flags.
// Higher sensitivity narrows the lookback window and lowers the sigma
// threshold.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// sensitivityParams maps a sensitivity to its lookback window and sigma
// threshold. Unknown sensitivities fall back to medium.
var sensitivityParams = map[Sensitivity]struct {
	LookbackHours  int
	SigmaThreshold float64
}{
	SensitivityLow:    {24, 3.0},
	SensitivityMedium: {12, 2.5},
	SensitivityHigh:   {4, 2.0},
}

// Normalize lowercases the sensitivity and substitutes medium for
// unrecognized values.
func (s Sensitivity) Normalize() Sensitivity {
	norm := Sensitivity(strings.ToLower(string(s)))
	if _, ok := sensitivityParams[norm]; !ok {
		return SensitivityMedium
	}
	return norm
}

// LookbackHours returns the metrics window for this sensitivity.
func (s Sensitivity) LookbackHours() int {
	return sensitivityParams[s.Normalize()].LookbackHours
}

// SigmaThreshold returns the standard-deviation multiplier for this
// sensitivity.
func (s Sensitivity) SigmaThreshold() float64 {
	return sensitivityParams[s.Normalize()].SigmaThreshold
}

// Accuracy floors for the fixed-rate checks.
const (
	globalAccuracyFloor      = 0.75
	globalAccuracyHighFloor  = 0.60
	contentAccuracyFloor     = 0.70
	contentAccuracyHighFloor = 0.50
	contentMinSamples        = 10
)

// ThresholdDetector flags batches by descriptive statistics: a
// sensitivity-derived sigma threshold on response times plus fixed-rate
// accuracy floors, globally and per content type. Fully deterministic.
type ThresholdDetector struct{}

// NewThresholdDetector creates a threshold detector.
func NewThresholdDetector() *ThresholdDetector { return &ThresholdDetector{} }

// Detect scans the batch and returns the anomalies found. An empty batch
// yields an empty list. Input records are never modified.
func (d *ThresholdDetector) Detect(batch MetricsBatch, sensitivity Sensitivity) []Anomaly {
	anomalies := []Anomaly{}
	if len(batch) == 0 {
		return anomalies
	}
	sigma := sensitivity.SigmaThreshold()

	if a, ok := d.responseTimeAnomaly(batch, sigma); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := d.globalAccuracyAnomaly(batch); ok {
		anomalies = append(anomalies, a)
	}
	anomalies = append(anomalies, d.contentTypeAnomalies(batch)...)
	return anomalies
}

func (d *ThresholdDetector) responseTimeAnomaly(batch MetricsBatch, sigma float64) (Anomaly, bool) {
	times := make([]int64, len(batch))
	for i, r := range batch {
		times[i] = r.ResponseTimeMs
	}
	mean := Mean(times)
	std := SampleStdDev(times)
	if std == 0 {
		// Sigma threshold is undefined for a degenerate distribution.
		return Anomaly{}, false
	}
	upper := mean + sigma*std

	count := 0
	workers := map[string]struct{}{}
	for _, r := range batch {
		if float64(r.ResponseTimeMs) > upper {
			count++
			workers[r.WorkerID] = struct{}{}
		}
	}
	if count == 0 {
		return Anomaly{}, false
	}
	return Anomaly{
		Type:            AnomalyHighResponseTime,
		Severity:        SeverityMedium,
		Count:           count,
		Threshold:       upper,
		Average:         mean,
		AffectedWorkers: len(workers),
		Message:         fmt.Sprintf("Detected %d responses with unusually high response times", count),
	}, true
}

func (d *ThresholdDetector) globalAccuracyAnomaly(batch MetricsBatch) (Anomaly, bool) {
	rate := accuracyRate(batch)
	if rate >= globalAccuracyFloor {
		return Anomaly{}, false
	}
	severity := SeverityMedium
	if rate < globalAccuracyHighFloor {
		severity = SeverityHigh
	}
	v := rate
	return Anomaly{
		Type:      AnomalyLowAccuracy,
		Severity:  severity,
		Value:     &v,
		Threshold: globalAccuracyFloor,
		Message:   fmt.Sprintf("Low verification accuracy rate: %.2f%%", rate*100),
	}, true
}

func (d *ThresholdDetector) contentTypeAnomalies(batch MetricsBatch) []Anomaly {
	groups := map[ContentType]MetricsBatch{}
	for _, r := range batch {
		groups[r.ContentType] = append(groups[r.ContentType], r)
	}

	var anomalies []Anomaly
	// Fixed iteration order keeps output deterministic.
	for _, ct := range []ContentType{ContentText, ContentImage, ContentVideo} {
		group, ok := groups[ct]
		if !ok || len(group) < contentMinSamples {
			// Groups below the sample floor are never flagged.
			continue
		}
		rate := accuracyRate(group)
		if rate >= contentAccuracyFloor {
			continue
		}
		severity := SeverityMedium
		if rate < contentAccuracyHighFloor {
			severity = SeverityHigh
		}
		v := rate
		anomalies = append(anomalies, Anomaly{
			Type:        AnomalyContentTypeLowAccuracy,
			Severity:    severity,
			ContentType: ct,
			Value:       &v,
			Count:       len(group),
			Threshold:   contentAccuracyFloor,
			Message:     fmt.Sprintf("Low accuracy rate (%.2f%%) for content type %s", rate*100, ct),
		})
	}
	return anomalies
}

func accuracyRate(batch MetricsBatch) float64 {
	if len(batch) == 0 {
		return 0.0
	}
	accurate := 0
	for _, r := range batch {
		if r.IsAccurate {
			accurate++
		}
	}
	return float64(accurate) / float64(len(batch))
}
