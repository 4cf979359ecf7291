package recovery

import (
	"errors"
	"testing"
)

func TestRunnerError_Error(t *testing.T) {
	err := &RunnerError{Code: "EMPTY_RUN", Message: "no computations to run"}
	if got := err.Error(); got != "EMPTY_RUN: no computations to run" {
		t.Errorf("unexpected message: %q", got)
	}

	bare := &RunnerError{Message: "plain"}
	if got := bare.Error(); got != "plain" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestComputationError(t *testing.T) {
	cause := errors.New("bad input")
	persist := errors.New("disk full")

	tests := []struct {
		name    string
		err     *ComputationError
		want    string
		targets []error
	}{
		{
			name:    "cause only",
			err:     &ComputationError{Computation: "parse", Cause: cause},
			want:    "computation parse failed: bad input",
			targets: []error{cause},
		},
		{
			name:    "cause and persistence failure",
			err:     &ComputationError{Computation: "parse", Cause: cause, PersistErr: persist},
			want:    "computation parse failed: bad input (saving snapshot also failed: disk full)",
			targets: []error{cause, persist},
		},
		{
			name: "no cause",
			err:  &ComputationError{Computation: "parse"},
			want: "computation parse failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			for _, target := range tt.targets {
				if !errors.Is(tt.err, target) {
					t.Errorf("expected errors.Is(%v) to hold", target)
				}
			}
			if len(tt.err.Unwrap()) != len(tt.targets) {
				t.Errorf("expected %d unwrapped errors, got %d", len(tt.targets), len(tt.err.Unwrap()))
			}
		})
	}
}
