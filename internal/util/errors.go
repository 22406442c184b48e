package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fatal failure modes of a run.
// Per-row problems are never returned as errors; they are counted.
var (
	// ErrMalformedSource indicates a raw source could not be read or parsed at all
	ErrMalformedSource = errors.New("malformed source")

	// ErrStoreUnavailable indicates the normalized store could not be reached or written
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Stage names a pipeline stage for error reporting
type Stage string

const (
	StageRead     Stage = "read"
	StageValidate Stage = "validate"
	StageDedupe   Stage = "dedupe"
	StageLoad     Stage = "load"
	StageRecord   Stage = "record"
)

// StageError records which stage of a run failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WrapStage wraps err with the stage it occurred in. Nil stays nil.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// FailedStage returns the stage recorded in err, or "" if there is none
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
