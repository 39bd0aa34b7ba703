package analytics

// ScanReport is the outcome of one detector pass over a batch.
// Threshold-style detectors populate Anomalies; model-based detectors
// additionally carry per-record Flags and Scores (aligned with the
// scorable suffix of the batch).
type ScanReport struct {
	Detector  string    `json:"detector"`
	Anomalies []Anomaly `json:"anomalies"`
	Flags     []bool    `json:"flags,omitempty"`
	Scores    []float64 `json:"scores,omitempty"`
}

// BatchDetector is the common capability both anomaly strategies expose:
// scan an ordered metrics batch and report what was found. The statistical
// and model-based detectors are independent implementations over the same
// record abstraction, selectable or composable by the caller.
type BatchDetector interface {
	Name() string
	Scan(batch OrderedBatch) (ScanReport, error)
}

// ThresholdScanner adapts ThresholdDetector to the BatchDetector
// capability with a fixed sensitivity.
type ThresholdScanner struct {
	Detector    *ThresholdDetector
	Sensitivity Sensitivity
}

// Name implements BatchDetector.
func (s *ThresholdScanner) Name() string { return "threshold" }

// Scan implements BatchDetector for the statistical strategy.
func (s *ThresholdScanner) Scan(batch OrderedBatch) (ScanReport, error) {
	return ScanReport{
		Detector:  s.Name(),
		Anomalies: s.Detector.Detect(batch.Records(), s.Sensitivity),
	}, nil
}

// ModelScanner adapts a trained AnomalyModel to the BatchDetector
// capability. The model is treated as read-only.
type ModelScanner struct {
	Detector *ModelDetector
	Model    *AnomalyModel
}

// Name implements BatchDetector.
func (s *ModelScanner) Name() string { return "isolation-forest" }

// Scan implements BatchDetector for the model-based strategy.
func (s *ModelScanner) Scan(batch OrderedBatch) (ScanReport, error) {
	flags, scores, err := s.Detector.Score(batch, s.Model)
	if err != nil {
		return ScanReport{}, err
	}
	return ScanReport{
		Detector:  s.Name(),
		Anomalies: []Anomaly{},
		Flags:     flags,
		Scores:    scores,
	}, nil
}
