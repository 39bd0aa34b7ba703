package analytics

// StandardScaler standardizes features to zero mean and unit variance.
// Means and deviations are fitted once on training data and applied
// unchanged at inference: refitting on scoring data silently corrupts
// scores, so Transform never recomputes statistics.
type StandardScaler struct {
	Means  []float64 `json:"means"`
	Stds   []float64 `json:"stds"`
	Fitted bool      `json:"fitted"`
}

// Fit computes per-column means and population standard deviations.
// Zero-variance columns get a deviation of 1 so Transform stays defined.
func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return &ValidationError{Field: "features", Reason: "cannot fit scaler on empty feature matrix"}
	}
	cols := len(rows[0])
	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			if len(row) != cols {
				return &ValidationError{Field: "features", Reason: "ragged feature matrix"}
			}
			col[i] = row[j]
		}
		s.Means[j] = Mean(col)
		std := PopulationStdDev(col)
		if std == 0 {
			std = 1.0
		}
		s.Stds[j] = std
	}
	s.Fitted = true
	return nil
}

// Transform standardizes rows with the fitted statistics, returning a new
// matrix. The input is left untouched.
func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	if !s.Fitted {
		return nil, &ComputationError{Op: "scaler.Transform", Reason: "scaler not fitted"}
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Means) {
			return nil, &ValidationError{Field: "features", Reason: "feature count does not match fitted scaler"}
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits the scaler and transforms the same rows.
func (s *StandardScaler) FitTransform(rows [][]float64) ([][]float64, error) {
	if err := s.Fit(rows); err != nil {
		return nil, err
	}
	return s.Transform(rows)
}
