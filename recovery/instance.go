package recovery

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dshills/recovery-go/recovery/codec"
)

// State is the lifecycle state of an Instance.
type State int

const (
	NotStarted State = iota
	Stepping
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StepFunc performs one checkpointed piece of work. Its context carries
// the StepInfo of the step being executed.
type StepFunc func(ctx context.Context) (interface{}, error)

// StepInfo identifies one step of a computation at a recovery location.
// It is stable across resumed runs, so Key can serve as an idempotency key
// for side effects performed inside the step.
type StepInfo struct {
	Location    string
	Computation string
	Index       int
}

// Key returns "<location>#<computation>/<index>".
func (s StepInfo) Key() string {
	return fmt.Sprintf("%s#%s/%d", s.Location, s.Computation, s.Index)
}

type stepInfoKey struct{}

// StepFromContext returns the StepInfo of the step executing under ctx.
func StepFromContext(ctx context.Context) (StepInfo, bool) {
	info, ok := ctx.Value(stepInfoKey{}).(StepInfo)
	return info, ok
}

// Instance is a computation bound to a Runner for the duration of one run.
// It carries the step cursor used to match Step calls with recorded results.
type Instance struct {
	name      string
	cursor    int
	recovered bool
	state     State
	inStep    atomic.Bool
	runner    *Runner
}

// Name returns the computation name the instance records under.
func (i *Instance) Name() string { return i.name }

// Cursor returns how many steps have been executed or replayed.
func (i *Instance) Cursor() int { return i.cursor }

// Recovered reports whether the run adopted a persisted snapshot. It is
// informational: replay is decided per step.
func (i *Instance) Recovered() bool { return i.recovered }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// Step crosses a checkpoint boundary.
//
// If the snapshot holds a result for this computation at the current
// cursor, that result is returned and fn is not called, whatever the value
// (nil, false and zero are replayed like any other value). Otherwise fn is
// called and its result is recorded at the cursor. Either way the cursor
// advances by one. When fn returns an error nothing is recorded and the
// cursor does not move.
//
// Results are matched by position only. Adding, removing or reordering Step
// calls between runs replays results into the wrong steps; change the
// Runner's Dependencies when the step sequence changes.
//
// Replayed values have passed through the codec and come back in generic
// shapes (map[string]interface{}, []interface{}, int64, float64). Use
// StepAs to get a concrete type back.
func (i *Instance) Step(ctx context.Context, fn StepFunc) (interface{}, error) {
	if i.runner == nil || i.state == Completed || i.state == Failed {
		return nil, ErrStepOutsideRun
	}
	if !i.inStep.CompareAndSwap(false, true) {
		return nil, ErrNestedStep
	}
	defer i.inStep.Store(false)

	i.state = Stepping
	return i.runner.step(ctx, i, fn)
}

// StepAs is Step with a typed result. A replayed value that is not already
// a T is converted by re-encoding it with the Runner's codec.
//
//	user, err := recovery.StepAs(ctx, inst, func(ctx context.Context) (User, error) {
//		return api.GetUser(ctx, id)
//	})
func StepAs[T any](ctx context.Context, inst *Instance, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	v, err := inst.Step(ctx, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	var out T
	if err := codec.Convert(inst.runner.codec(), v, &out); err != nil {
		return zero, fmt.Errorf("step %d of %s: cannot convert %T to %T: %w",
			inst.cursor-1, inst.name, v, zero, err)
	}
	return out, nil
}
