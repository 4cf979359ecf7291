package recovery

import (
	"context"
	"fmt"
)

// Computation is a named unit of work executed by a Runner.
//
// Name must return a stable identifier: it keys the computation's step
// results in the Snapshot, so renaming a computation discards its recorded
// progress. Run receives the previous computation's result (or the Run
// input for the first computation) and calls inst.Step for each piece of
// work that should be checkpointed.
//
// Example:
//
//	type Fetch struct{ recovery.Base }
//
//	func (f *Fetch) Run(ctx context.Context, inst *recovery.Instance, input any) (any, error) {
//		page, err := inst.Step(ctx, func(ctx context.Context) (any, error) {
//			return download(ctx, input.(string))
//		})
//		if err != nil {
//			return nil, err
//		}
//		return page, nil
//	}
type Computation interface {
	Name() string
	Run(ctx context.Context, inst *Instance, input interface{}) (interface{}, error)
}

// Base provides Name for computations that embed it. Its Run always fails
// with ErrRunNotImplemented, so a type that embeds Base but forgets to
// define Run fails on first use rather than silently doing nothing.
type Base struct {
	ID string
}

// Name returns the stable identifier.
func (b Base) Name() string { return b.ID }

// Run fails unconditionally.
func (b Base) Run(ctx context.Context, inst *Instance, input interface{}) (interface{}, error) {
	return nil, fmt.Errorf("%s: %w", b.ID, ErrRunNotImplemented)
}

// RunFunc is the signature of a computation's Run method.
type RunFunc func(ctx context.Context, inst *Instance, input interface{}) (interface{}, error)

type funcComputation struct {
	name string
	fn   RunFunc
}

func (f *funcComputation) Name() string { return f.name }

func (f *funcComputation) Run(ctx context.Context, inst *Instance, input interface{}) (interface{}, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("%s: %w", f.name, ErrRunNotImplemented)
	}
	return f.fn(ctx, inst, input)
}

// Func adapts a function into a Computation with the given name.
//
//	double := recovery.Func("double", func(ctx context.Context, inst *recovery.Instance, in any) (any, error) {
//		return inst.Step(ctx, func(context.Context) (any, error) { return in.(int) * 2, nil })
//	})
func Func(name string, fn RunFunc) Computation {
	return &funcComputation{name: name, fn: fn}
}

// Entry is one element of a run list: either an existing Computation or a
// constructor the Runner calls before executing it.
type Entry struct {
	instance  Computation
	construct func() Computation
}

// Use returns an Entry that runs c as is.
func Use(c Computation) Entry {
	return Entry{instance: c}
}

// Factory returns an Entry whose Computation is built by fn when the run
// starts.
func Factory(fn func() Computation) Entry {
	return Entry{construct: fn}
}

// Construct returns an Entry that runs a zero-valued *T. T's Name method
// must not depend on field values.
//
//	runner.Run(ctx, []recovery.Entry{recovery.Construct[Fetch](), recovery.Use(parser)}, url)
func Construct[T any, PT interface {
	*T
	Computation
}]() Entry {
	return Entry{construct: func() Computation { return PT(new(T)) }}
}

// Entries wraps existing computations with Use.
func Entries(cs ...Computation) []Entry {
	out := make([]Entry, len(cs))
	for i, c := range cs {
		out[i] = Use(c)
	}
	return out
}

func (e Entry) resolve() Computation {
	if e.instance != nil {
		return e.instance
	}
	if e.construct != nil {
		return e.construct()
	}
	return nil
}
