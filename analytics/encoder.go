package analytics

import "sort"

// LabelEncoder maps categorical string values to integer codes fitted at
// training time. The contract does not support unseen labels: Transform
// fails with EncodingError rather than defaulting, because a silently
// substituted code would feed garbage into a model trained on real ones.
type LabelEncoder struct {
	Column  string   `json:"column"`
	Classes []string `json:"classes"`
}

// NewLabelEncoder creates an unfitted encoder for the named column.
func NewLabelEncoder(column string) *LabelEncoder {
	return &LabelEncoder{Column: column}
}

// Fit learns the class set from training values. Classes are sorted so
// codes are stable across runs.
func (e *LabelEncoder) Fit(values []string) {
	seen := map[string]struct{}{}
	e.Classes = e.Classes[:0]
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			e.Classes = append(e.Classes, v)
		}
	}
	sort.Strings(e.Classes)
}

// Transform maps a value to its fitted code.
func (e *LabelEncoder) Transform(value string) (int, error) {
	for i, c := range e.Classes {
		if c == value {
			return i, nil
		}
	}
	return 0, &EncodingError{Column: e.Column, Value: value}
}

// FitTransform fits on the values and returns their codes.
func (e *LabelEncoder) FitTransform(values []string) []int {
	e.Fit(values)
	codes := make([]int, len(values))
	for i, v := range values {
		codes[i], _ = e.Transform(v)
	}
	return codes
}

// Inverse maps a code back to its class label.
func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", &EncodingError{Column: e.Column, Value: "unknown code"}
	}
	return e.Classes[code], nil
}
