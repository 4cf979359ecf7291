package recovery

import (
	"errors"
	"strings"
)

// ErrRunNotImplemented is returned by Base.Run. Embed Base and provide a
// Run method to implement Computation.
var ErrRunNotImplemented = errors.New("computation does not implement Run")

// ErrStepOutsideRun is returned when Step is called on an instance whose
// computation has already completed or failed, or that no Runner created.
var ErrStepOutsideRun = errors.New("step called outside of a running computation")

// ErrNestedStep is returned when Step is called while another Step of the
// same instance is still in progress.
var ErrNestedStep = errors.New("step called while another step is in progress")

// RunnerError reports invalid Runner configuration or misuse.
type RunnerError struct {
	Message string
	Code    string
}

func (e *RunnerError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ComputationError is returned by Run when a computation fails.
//
// Cause is the error the computation returned. When persisting the snapshot
// after the failure also failed, PersistErr holds that error; both are
// reachable through errors.Is and errors.As.
type ComputationError struct {
	// Computation is the name of the computation that failed.
	Computation string

	// Cause is the original error raised by the computation.
	Cause error

	// PersistErr is the error from saving the snapshot, if any.
	PersistErr error
}

func (e *ComputationError) Error() string {
	var b strings.Builder
	b.WriteString("computation ")
	b.WriteString(e.Computation)
	b.WriteString(" failed")
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.PersistErr != nil {
		b.WriteString(" (saving snapshot also failed: ")
		b.WriteString(e.PersistErr.Error())
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the cause and, when present, the persistence error.
func (e *ComputationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.PersistErr != nil {
		errs = append(errs, e.PersistErr)
	}
	return errs
}
