package fedlearn

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when an operation requires a committed model
// and initialize() has not been called.
var ErrNotInitialized = errors.New("federated learning not initialized")

// ErrPrivacyBudgetExhausted is returned when running another round would push
// cumulative ε past the configured target. It is an expected steady-state
// condition, recoverable by stopping or re-initializing with a larger budget.
var ErrPrivacyBudgetExhausted = errors.New("privacy budget exhausted")

// ConfigurationError reports invalid caller input (bad hospital count, bad
// architecture parameters). Not retryable until the input is fixed.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// TrainingError reports an internal contract violation during a round, such
// as a parameter-shape mismatch between trainer and global model. Fatal to
// the round; the round is discarded atomically.
type TrainingError struct {
	HospitalID string
	Reason     string
}

func (e *TrainingError) Error() string {
	if e.HospitalID == "" {
		return fmt.Sprintf("training failed: %s", e.Reason)
	}
	return fmt.Sprintf("training failed on hospital %s: %s", e.HospitalID, e.Reason)
}

// ShapeMismatchError reports a read-operation input whose length does not
// match the model's fixed feature schema.
type ShapeMismatchError struct {
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("feature vector has length %d, model expects %d", e.Got, e.Want)
}
