package analytics

// AnomalyModel bundles the fitted isolation forest with the scaler fitted
// on the same training data. The pair is persisted and loaded as one
// artifact; mixing a forest with a scaler fitted elsewhere silently
// corrupts scores, so neither is ever serialized alone.
type AnomalyModel struct {
	Forest         *IsolationForest `json:"forest"`
	Scaler         *StandardScaler  `json:"scaler"`
	FeatureColumns []string         `json:"feature_columns"`
}

// ModelDetector is the model-based anomaly strategy: isolation-forest
// outlier detection over scaled rolling-window features. Training is an
// offline step; Score applies a previously trained model without
// refitting anything.
type ModelDetector struct {
	Contamination float64
	Seed          int64
}

// NewModelDetector creates a detector with the given contamination
// hyperparameter (default applied when out of range) and a fixed seed.
func NewModelDetector(contamination float64) *ModelDetector {
	return &ModelDetector{Contamination: contamination, Seed: DefaultSeed}
}

// Train fits the scaler and forest on a historical batch and returns the
// combined model. The batch must span at least AccuracyWindow records
// once rolling features are computed.
func (d *ModelDetector) Train(historical OrderedBatch) (*AnomalyModel, error) {
	raw, err := buildAnomalyFeatures(historical)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &ValidationError{
			Field:  "batch",
			Reason: "too few records to fill the rolling accuracy window",
		}
	}

	scaler := &StandardScaler{}
	scaled, err := scaler.FitTransform(raw)
	if err != nil {
		return nil, err
	}

	forest := NewIsolationForest(d.Contamination, d.Seed)
	if err := forest.Fit(scaled); err != nil {
		return nil, err
	}

	return &AnomalyModel{
		Forest:         forest,
		Scaler:         scaler,
		FeatureColumns: AnomalyFeatureColumns,
	}, nil
}

// Score applies a trained model to a batch. It returns one flag and one
// continuous score per scorable record (records past the rolling window),
// lower score meaning more anomalous. A batch too short to fill the
// window yields empty output, not an error.
func (d *ModelDetector) Score(batch OrderedBatch, model *AnomalyModel) ([]bool, []float64, error) {
	if model == nil || model.Forest == nil || model.Scaler == nil {
		return nil, nil, &ArtifactError{Reason: "anomaly model is missing forest or scaler"}
	}
	raw, err := buildAnomalyFeatures(batch)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return []bool{}, []float64{}, nil
	}

	scaled, err := model.Scaler.Transform(raw)
	if err != nil {
		return nil, nil, err
	}
	return model.Forest.Predict(scaled)
}

// ScorableFrom returns the index of the first record in the batch that
// produces a feature row, so callers can map flags and scores back onto
// record positions.
func ScorableFrom() int { return AccuracyWindow - 1 }
