package analytics

// AccuracyWindow is the trailing window (in records) over which the
// rolling accuracy rate is computed.
const AccuracyWindow = 10

// AnomalyFeatureColumns is the feature order the model detector trains
// and scores with. Serialized into the artifact so loads can reject a
// column-order mismatch.
var AnomalyFeatureColumns = []string{
	"response_time_ms",
	"confidence_score",
	"cost",
	"accuracy_rate",
}

// buildAnomalyFeatures converts an ordered batch into the raw (unscaled)
// feature matrix for the model detector. The accuracy_rate column is a
// trailing rolling mean of IsAccurate over AccuracyWindow records, so the
// leading window-1 records have no full window and are dropped. Batches
// shorter than the window produce an empty matrix.
func buildAnomalyFeatures(batch OrderedBatch) ([][]float64, error) {
	records := batch.Records()
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if len(records) < AccuracyWindow {
		return [][]float64{}, nil
	}

	rows := make([][]float64, 0, len(records)-AccuracyWindow+1)
	accurate := 0
	for i, r := range records {
		if r.IsAccurate {
			accurate++
		}
		if i >= AccuracyWindow {
			if records[i-AccuracyWindow].IsAccurate {
				accurate--
			}
		}
		if i < AccuracyWindow-1 {
			continue
		}
		rate := float64(accurate) / float64(AccuracyWindow)
		rows = append(rows, []float64{
			float64(r.ResponseTimeMs),
			r.ConfidenceScore,
			r.Cost,
			rate,
		})
	}
	return rows, nil
}
