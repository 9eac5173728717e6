package migrate

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrSameEnvironment = errors.New("source and destination are the same environment")
	ErrDeclined        = errors.New("migration declined")
)

// ValidationError is a pre-flight rejection. Nothing destructive has run.
type ValidationError struct {
	Env string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Env == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %v", e.Env, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StepError is a fatal failure while entering State.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// BestEffortFailure is a failed step that the pipeline logged and carried
// on past.
type BestEffortFailure struct {
	State  State
	Action string
	Err    error
}

func (f BestEffortFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Action, f.State, f.Err)
}

func (f BestEffortFailure) Unwrap() error { return f.Err }
