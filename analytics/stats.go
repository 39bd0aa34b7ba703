package analytics

import "math"

// Number constrains the numeric types the batch statistics operate on.
type Number interface {
	int | int64 | float64
}

// Mean calculates the arithmetic mean of a data list.
// Returns 0 for an empty list.
func Mean[T Number](data []T) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}

// SampleStdDev calculates the sample standard deviation (n-1 denominator)
// of a data list. Undefined for fewer than two values; returns 0 in that
// case so callers can skip sigma-based flagging instead of dividing by zero.
func SampleStdDev[T Number](data []T) float64 {
	n := len(data)
	if n < 2 {
		return 0.0
	}
	mean := Mean(data)
	ss := 0.0
	for _, v := range data {
		d := float64(v) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// PopulationStdDev calculates the population standard deviation (n
// denominator). Feature standardization uses this form.
func PopulationStdDev[T Number](data []T) float64 {
	n := len(data)
	if n == 0 {
		return 0.0
	}
	mean := Mean(data)
	ss := 0.0
	for _, v := range data {
		d := float64(v) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// Percentile calculates the p-th percentile of a sorted data list using
// linear interpolation between closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0.0
	}
	rank := p / 100.0 * float64(n-1)
	lowerIdx := int(math.Floor(rank))
	upperIdx := int(math.Ceil(rank))
	if lowerIdx == upperIdx || upperIdx >= n {
		return sorted[lowerIdx]
	}
	frac := rank - float64(lowerIdx)
	return sorted[lowerIdx] + (sorted[upperIdx]-sorted[lowerIdx])*frac
}
