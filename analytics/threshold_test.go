package analytics

import (
	"testing"
	"time"
)

func makeRecord(worker string, ct ContentType, responseMs int64, accurate bool) MetricRecord {
	return MetricRecord{
		TaskID:             "t",
		WorkerID:           worker,
		ContentType:        ct,
		VerificationMethod: MethodHuman,
		ConfidenceScore:    0.9,
		ResponseTimeMs:     responseMs,
		IsAccurate:         accurate,
		Cost:               0.05,
		Timestamp:          time.Now(),
	}
}

func anomaliesOfType(anomalies []Anomaly, t AnomalyType) []Anomaly {
	var out []Anomaly
	for _, a := range anomalies {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func TestDetect_EmptyBatch_ReturnsEmptyList(t *testing.T) {
	d := NewThresholdDetector()
	got := d.Detect(MetricsBatch{}, SensitivityHigh)
	if got == nil {
		t.Fatal("Detect(empty): got nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Detect(empty): got %d anomalies, want 0", len(got))
	}
}

func TestDetect_ResponseTimeOutlier_SensitivityMonotonicity(t *testing.T) {
	// Wide cluster (25x800, 25x1200) plus one outlier at 1450: roughly
	// 2.1 sigma above the mean, so the 2-sigma threshold fires and the
	// 3-sigma one does not. All records accurate so only the response
	// time check can trigger.
	var batch MetricsBatch
	for i := 0; i < 25; i++ {
		batch = append(batch, makeRecord("w-fast", ContentText, 800, true))
		batch = append(batch, makeRecord("w-slow", ContentText, 1200, true))
	}
	batch = append(batch, makeRecord("w-outlier", ContentText, 1450, true))

	d := NewThresholdDetector()
	high := anomaliesOfType(d.Detect(batch, SensitivityHigh), AnomalyHighResponseTime)
	low := anomaliesOfType(d.Detect(batch, SensitivityLow), AnomalyHighResponseTime)

	if len(high) != 1 {
		t.Fatalf("high sensitivity: got %d HIGH_RESPONSE_TIME anomalies, want 1", len(high))
	}
	if len(low) != 0 {
		t.Errorf("low sensitivity: got %d HIGH_RESPONSE_TIME anomalies, want 0", len(low))
	}

	a := high[0]
	if a.Severity != SeverityMedium {
		t.Errorf("severity: got %s, want MEDIUM", a.Severity)
	}
	if a.Count != 1 {
		t.Errorf("count: got %d, want 1", a.Count)
	}
	if a.AffectedWorkers != 1 {
		t.Errorf("affected workers: got %d, want 1", a.AffectedWorkers)
	}
	if a.Threshold <= a.Average {
		t.Errorf("threshold %f should exceed mean %f", a.Threshold, a.Average)
	}
}

func TestDetect_ConstantResponseTimes_NoSigmaAnomaly(t *testing.T) {
	// Zero variance: the sigma threshold is undefined and must be
	// skipped, not divided through.
	var batch MetricsBatch
	for i := 0; i < 20; i++ {
		batch = append(batch, makeRecord("w1", ContentText, 500, true))
	}
	d := NewThresholdDetector()
	got := anomaliesOfType(d.Detect(batch, SensitivityHigh), AnomalyHighResponseTime)
	if len(got) != 0 {
		t.Errorf("constant response times: got %d anomalies, want 0", len(got))
	}
}

func TestDetect_GlobalAccuracyHalf_FiresHighSeverity(t *testing.T) {
	// Exactly 50 of 100 accurate: 0.5 < 0.6 means HIGH severity.
	var batch MetricsBatch
	for i := 0; i < 100; i++ {
		batch = append(batch, makeRecord("w1", ContentText, 500, i < 50))
	}

	d := NewThresholdDetector()
	got := anomaliesOfType(d.Detect(batch, SensitivityMedium), AnomalyLowAccuracy)
	if len(got) != 1 {
		t.Fatalf("got %d LOW_ACCURACY anomalies, want 1", len(got))
	}
	a := got[0]
	if a.Severity != SeverityHigh {
		t.Errorf("severity: got %s, want HIGH", a.Severity)
	}
	if !a.HasValue() || *a.Value != 0.5 {
		t.Errorf("value: got %v, want 0.5", a.Value)
	}
	if a.Threshold != 0.75 {
		t.Errorf("threshold: got %f, want 0.75", a.Threshold)
	}
}

func TestDetect_ContentTypeGrouping_SampleFloor(t *testing.T) {
	// 9 video records at 0% accuracy sit below the 10-sample floor and
	// must never be flagged; 91 accurate text records keep the global
	// rate healthy.
	var batch MetricsBatch
	for i := 0; i < 91; i++ {
		batch = append(batch, makeRecord("w1", ContentText, 500, true))
	}
	for i := 0; i < 9; i++ {
		batch = append(batch, makeRecord("w2", ContentVideo, 500, false))
	}

	d := NewThresholdDetector()
	got := anomaliesOfType(d.Detect(batch, SensitivityMedium), AnomalyContentTypeLowAccuracy)
	if len(got) != 0 {
		t.Errorf("9-sample group: got %d CONTENT_TYPE_LOW_ACCURACY anomalies, want 0", len(got))
	}
}

func TestDetect_ContentTypeGrouping_TenSamplesAtFortyPercent(t *testing.T) {
	var batch MetricsBatch
	for i := 0; i < 90; i++ {
		batch = append(batch, makeRecord("w1", ContentText, 500, true))
	}
	for i := 0; i < 10; i++ {
		batch = append(batch, makeRecord("w2", ContentVideo, 500, i < 4))
	}

	d := NewThresholdDetector()
	got := anomaliesOfType(d.Detect(batch, SensitivityMedium), AnomalyContentTypeLowAccuracy)
	if len(got) != 1 {
		t.Fatalf("got %d CONTENT_TYPE_LOW_ACCURACY anomalies, want 1", len(got))
	}
	a := got[0]
	if a.Severity != SeverityHigh {
		t.Errorf("severity: got %s, want HIGH (0.4 < 0.5)", a.Severity)
	}
	if a.ContentType != ContentVideo {
		t.Errorf("content type: got %s, want video", a.ContentType)
	}
	if a.Count != 10 {
		t.Errorf("count: got %d, want 10", a.Count)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	var batch MetricsBatch
	for i := 0; i < 50; i++ {
		batch = append(batch, makeRecord("w1", ContentImage, int64(100+i*37%500), i%3 != 0))
	}
	d := NewThresholdDetector()
	first := d.Detect(batch, SensitivityHigh)
	for run := 0; run < 5; run++ {
		again := d.Detect(batch, SensitivityHigh)
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d anomalies, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i].Type != first[i].Type || again[i].Severity != first[i].Severity || again[i].Count != first[i].Count {
				t.Errorf("run %d: anomaly %d differs", run, i)
			}
		}
	}
}

func TestSensitivity_ParamMapping(t *testing.T) {
	tests := []struct {
		in       Sensitivity
		lookback int
		sigma    float64
	}{
		{SensitivityLow, 24, 3.0},
		{SensitivityMedium, 12, 2.5},
		{SensitivityHigh, 4, 2.0},
		{Sensitivity("HIGH"), 4, 2.0},       // case-insensitive
		{Sensitivity("aggressive"), 12, 2.5}, // unknown defaults to medium
		{Sensitivity(""), 12, 2.5},
	}
	for _, tc := range tests {
		if got := tc.in.LookbackHours(); got != tc.lookback {
			t.Errorf("LookbackHours(%q): got %d, want %d", tc.in, got, tc.lookback)
		}
		if got := tc.in.SigmaThreshold(); got != tc.sigma {
			t.Errorf("SigmaThreshold(%q): got %f, want %f", tc.in, got, tc.sigma)
		}
	}
}
