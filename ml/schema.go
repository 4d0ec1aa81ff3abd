package ml

// Schema is the ordered feature list a loaded model was fitted with.
// It is read-only after load; the aligner follows it even when it
// differs from the canonical training order.
type Schema []string

// AlignmentError reports a feature the model expects but the encoder
// no longer produces. This is a deploy-time contract break, not a
// client fault.
type AlignmentError struct {
	Feature string
}

func (e *AlignmentError) Error() string {
	return "encoded features missing " + e.Feature + " required by model schema"
}

// Align orders encoded features into a model input vector. Extra
// encoded keys are dropped silently; a missing schema feature fails
// the whole request.
func (s Schema) Align(features map[string]float64) ([]float64, error) {
	vector := make([]float64, len(s))
	for i, name := range s {
		value, ok := features[name]
		if !ok {
			return nil, &AlignmentError{Feature: name}
		}
		vector[i] = value
	}
	return vector, nil
}
