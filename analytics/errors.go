package analytics

import "fmt"

// ValidationError reports missing or malformed input fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Reason)
}

// EncodingError reports a categorical value unseen at training time.
// The encoder contract does not support unseen labels.
type EncodingError struct {
	Column string
	Value  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding: unseen value %q for column %q", e.Value, e.Column)
}

// ArtifactError reports an unreadable or schema-incompatible model artifact.
type ArtifactError struct {
	Reason string
	Err    error
}

func (e *ArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("artifact: %s", e.Reason)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// ComputationError reports statistics that are undefined for the given
// input (for example a zero-variance division). Paths that can hit these
// conditions guard against them; this error exists for the cases where no
// meaningful fallback is possible.
type ComputationError struct {
	Op     string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation: %s: %s", e.Op, e.Reason)
}
