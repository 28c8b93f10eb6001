package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when a run observed cancellation. No result
	// accompanies it.
	ErrCancelled = errors.New("analysis cancelled")
	// ErrInvalidInput marks a run rejected before any stage executed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFatal marks a failure no fallback could recover from.
	ErrFatal = errors.New("analysis failed")
	// ErrBusy is returned when Run is called while another run is active on
	// the same Analyzer.
	ErrBusy = errors.New("analyzer already running")
)

// ValidationError describes rejected input. errors.Is(err, ErrInvalidInput)
// holds for every ValidationError.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// StageError reports an unrecoverable failure inside a stage.
// errors.Is(err, ErrFatal) holds, and the cause stays reachable through
// errors.Is and errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrFatal, e.Err}
}
