package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialBatch(n int, accurate func(i int) bool) OrderedBatch {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	records := make([]MetricRecord, n)
	for i := 0; i < n; i++ {
		records[i] = MetricRecord{
			TaskID:             "t",
			WorkerID:           "w",
			ContentType:        ContentText,
			VerificationMethod: MethodAI,
			ConfidenceScore:    0.8,
			ResponseTimeMs:     int64(1000 + i),
			IsAccurate:         accurate(i),
			Cost:               0.01,
			Timestamp:          base.Add(time.Duration(i) * time.Minute),
		}
	}
	batch, err := NewOrderedBatch(records)
	if err != nil {
		panic(err)
	}
	return batch
}

func TestBuildAnomalyFeatures_ShortBatchIsEmpty(t *testing.T) {
	batch := sequentialBatch(AccuracyWindow-1, func(int) bool { return true })
	rows, err := buildAnomalyFeatures(batch)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBuildAnomalyFeatures_DropsLeadingWindow(t *testing.T) {
	batch := sequentialBatch(25, func(int) bool { return true })
	rows, err := buildAnomalyFeatures(batch)
	require.NoError(t, err)
	assert.Len(t, rows, 25-AccuracyWindow+1)

	// First feature row corresponds to record index AccuracyWindow-1.
	assert.Equal(t, float64(1000+AccuracyWindow-1), rows[0][0])
}

func TestBuildAnomalyFeatures_RollingAccuracy(t *testing.T) {
	// Every other record accurate: any 10-record trailing window holds
	// exactly 5 accurate records.
	batch := sequentialBatch(30, func(i int) bool { return i%2 == 0 })
	rows, err := buildAnomalyFeatures(batch)
	require.NoError(t, err)
	for i, row := range rows {
		assert.InDelta(t, 0.5, row[3], 1e-12, "row %d accuracy rate", i)
	}

	// All accurate: rate pinned at 1.
	batch = sequentialBatch(15, func(int) bool { return true })
	rows, err = buildAnomalyFeatures(batch)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, 1.0, row[3])
	}
}

func TestBuildAnomalyFeatures_InvalidRecordFails(t *testing.T) {
	records := sequentialBatch(12, func(int) bool { return true }).Records()
	bad := make([]MetricRecord, len(records))
	copy(bad, records)
	bad[3].ConfidenceScore = 1.7
	batch, err := NewOrderedBatch(bad)
	require.NoError(t, err)

	_, err = buildAnomalyFeatures(batch)
	var valErr *ValidationError
	assert.True(t, errors.As(err, &valErr), "want ValidationError, got %v", err)
}

func TestNewOrderedBatch_RejectsOutOfOrder(t *testing.T) {
	records := sequentialBatch(5, func(int) bool { return true }).Records()
	swapped := make([]MetricRecord, len(records))
	copy(swapped, records)
	swapped[1], swapped[3] = swapped[3], swapped[1]

	_, err := NewOrderedBatch(swapped)
	var valErr *ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestOrdered_SortsCopy(t *testing.T) {
	records := sequentialBatch(5, func(int) bool { return true }).Records()
	reversed := make(MetricsBatch, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		reversed = append(reversed, records[i])
	}

	ordered := reversed.Ordered()
	assert.Equal(t, records, ordered.Records())
	// Original slice untouched.
	assert.Equal(t, records[len(records)-1], reversed[0])
}
