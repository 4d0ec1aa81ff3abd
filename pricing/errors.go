package pricing

import "fmt"

// Stage names the pipeline step a failure came from. Logs and metrics
// key on it.
type Stage string

const (
	StageValidate Stage = "validate"
	StageEncode   Stage = "encode"
	StageAlign    Stage = "align"
	StagePredict  Stage = "predict"
)

// StageError tags a pipeline failure with the stage that produced it.
// The underlying error stays reachable through Unwrap, so callers can
// still pick out client-input faults with errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// PredictionError is a model-side failure: an error return, a
// recovered panic, or a non-finite output. It never carries client
// input back out.
type PredictionError struct {
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prediction failed: %s: %v", e.Reason, e.Err)
	}
	return "prediction failed: " + e.Reason
}

func (e *PredictionError) Unwrap() error { return e.Err }
