package recovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/recovery-go/recovery/codec"
	"github.com/dshills/recovery-go/recovery/emit"
	"github.com/dshills/recovery-go/recovery/store"
)

// RunResult is the value a computation returned. Results are kept in
// memory for the current run only.
type RunResult struct {
	Name  string
	Value interface{}
}

// Runner executes computations in order and owns their Snapshot.
//
// A Runner is not meant for concurrent Run calls; a second Run while one
// is in progress fails with code RUN_IN_PROGRESS. Query methods and Flush
// may be called from other goroutines. Two Runners must not share a
// recovery location at the same time.
type Runner struct {
	cfg      config
	deps     Dependencies
	normDeps interface{}
	store    *store.Recovery[Snapshot]
	location string
	emitter  *emit.LevelEmitter

	running atomic.Bool

	mu        sync.RWMutex
	runID     string
	snapshot  *Snapshot
	results   []RunResult
	recovered bool
}

// New creates a Runner for the given dependency description.
//
// Dependencies may be nil. They are normalized through the codec once, so
// that comparing them with a decoded snapshot compares like with like.
func New(deps Dependencies, opts ...Option) (*Runner, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	location := cfg.location
	if resolver, ok := cfg.transport.(store.LocationResolver); ok {
		abs, err := resolver.Resolve(location)
		if err != nil {
			return nil, err
		}
		location = abs
	}

	var norm interface{}
	if err := codec.Convert(cfg.codec, deps, &norm); err != nil {
		return nil, fmt.Errorf("failed to normalize dependencies: %w", err)
	}

	runID := cfg.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &Runner{
		cfg:      cfg,
		deps:     deps,
		normDeps: norm,
		store:    store.NewRecovery[Snapshot](cfg.transport, cfg.codec, location),
		location: location,
		emitter:  emit.NewLevelEmitter(cfg.emitter, cfg.level),
		runID:    runID,
		snapshot: newSnapshot(deps),
	}, nil
}

// Run executes the computations in entries, feeding each one the previous
// result (the first receives input), and returns the last RunResult.
//
// Before the first computation the Runner decides whether the persisted
// snapshot applies: not when WithFromScratch is set, not when nothing (or a
// falsy value) is stored, and not when the stored dependencies differ.
// Otherwise the stored snapshot replaces the in-memory one and steps replay.
//
// When a computation fails, the error is recorded in the snapshot, the
// snapshot is saved and a *ComputationError is returned; later
// computations do not run. Transport and codec faults during the recovery
// decision are returned as is. A run that completes clears the failure
// record of an adopted snapshot.
func (r *Runner) Run(ctx context.Context, entries []Entry, input interface{}) (RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return RunResult{}, &RunnerError{Code: "RUN_IN_PROGRESS", Message: "runner is already executing a run"}
	}
	defer r.running.Store(false)

	computations, err := resolveEntries(entries)
	if err != nil {
		return RunResult{}, err
	}

	if r.cfg.runID == "" {
		r.mu.Lock()
		r.runID = uuid.NewString()
		r.mu.Unlock()
	}

	loaded, err := r.decide(ctx)
	if err != nil {
		r.recordRun("error")
		return RunResult{}, err
	}

	r.mu.Lock()
	r.results = nil
	r.recovered = loaded != nil
	if loaded != nil {
		r.snapshot = loaded
	} else {
		r.snapshot = newSnapshot(r.deps)
	}
	recovered := r.recovered
	r.mu.Unlock()

	value := input
	var last RunResult
	for _, c := range computations {
		inst := &Instance{name: c.Name(), recovered: recovered, runner: r}

		out, err := r.execute(ctx, c, inst, value)
		if err != nil {
			r.recordRun("failed")
			return RunResult{}, err
		}

		last = RunResult{Name: inst.name, Value: out}
		r.mu.Lock()
		r.results = append(r.results, last)
		r.mu.Unlock()
		value = out
	}

	r.mu.Lock()
	r.snapshot.Error = nil
	r.mu.Unlock()

	r.recordRun("success")
	return last, nil
}

func resolveEntries(entries []Entry) ([]Computation, error) {
	if len(entries) == 0 {
		return nil, &RunnerError{Code: "EMPTY_RUN", Message: "no computations to run"}
	}

	out := make([]Computation, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		c := e.resolve()
		if c == nil {
			return nil, &RunnerError{Code: "INVALID_ENTRY", Message: fmt.Sprintf("entry %d has no computation", i)}
		}
		name := c.Name()
		if name == "" {
			return nil, &RunnerError{Code: "EMPTY_NAME", Message: fmt.Sprintf("computation at entry %d has an empty name", i)}
		}
		if prev, dup := seen[name]; dup {
			return nil, &RunnerError{
				Code:    "DUPLICATE_COMPUTATION",
				Message: fmt.Sprintf("computation %q appears at entries %d and %d", name, prev, i),
			}
		}
		seen[name] = i
		out = append(out, c)
	}
	return out, nil
}

// decide returns the persisted snapshot when it applies, or nil.
func (r *Runner) decide(ctx context.Context) (*Snapshot, error) {
	if r.cfg.fromScratch {
		r.logDecision("from_scratch", false)
		return nil, nil
	}

	loaded, err := r.store.Load(ctx)
	if err != nil {
		r.logDecision("error", false)
		return nil, err
	}
	if loaded == nil {
		r.logDecision("absent", false)
		return nil, nil
	}
	if !Equal(r.normDeps, loaded.Dependencies) {
		r.logDecision("dependencies_changed", false)
		return nil, nil
	}

	if loaded.Computations == nil {
		loaded.Computations = make(map[string][]interface{})
	}
	r.logDecision("recovered", true)
	return loaded, nil
}

// execute runs one computation, converting panics into errors.
func (r *Runner) execute(ctx context.Context, c Computation, inst *Instance, input interface{}) (out interface{}, err error) {
	start := time.Now()
	r.emit(emit.Event{
		Computation: inst.name,
		Msg:         emit.MsgComputationStart,
		Level:       emit.LevelDebug,
		Meta:        map[string]interface{}{"recovered": inst.recovered},
	})

	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic in computation %s: %v", inst.name, p)
			}
		}()
		out, err = c.Run(ctx, inst, input)
	}()

	elapsed := time.Since(start)
	if err != nil {
		inst.state = Failed
		r.metrics(func(m *PrometheusMetrics) { m.RecordComputation(inst.name, "failed") })
		r.emit(emit.Event{
			Computation: inst.name,
			Step:        inst.cursor,
			Msg:         emit.MsgComputationFailed,
			Level:       emit.LevelDebug,
			Meta: map[string]interface{}{
				"error":       err.Error(),
				"duration_ms": elapsed.Milliseconds(),
			},
		})
		return nil, r.fail(ctx, inst, err)
	}

	inst.state = Completed
	r.metrics(func(m *PrometheusMetrics) { m.RecordComputation(inst.name, "completed") })
	r.emit(emit.Event{
		Computation: inst.name,
		Step:        inst.cursor,
		Msg:         emit.MsgComputationComplete,
		Level:       emit.LevelDebug,
		Meta:        map[string]interface{}{"duration_ms": elapsed.Milliseconds(), "steps": inst.cursor},
	})
	return out, nil
}

// fail records cause in the snapshot, saves it and builds the error
// returned from Run. The save ignores ctx cancellation so that progress is
// kept even when the failure was a cancellation.
func (r *Runner) fail(ctx context.Context, inst *Instance, cause error) error {
	r.mu.Lock()
	r.snapshot.Error = &ErrorRecord{
		Computation: inst.name,
		Message:     cause.Error(),
		Time:        time.Now().UTC(),
	}
	r.mu.Unlock()

	persistErr := r.save(context.WithoutCancel(ctx), "failure")
	return &ComputationError{Computation: inst.name, Cause: cause, PersistErr: persistErr}
}

// Flush persists the current snapshot.
func (r *Runner) Flush(ctx context.Context) error {
	return r.save(ctx, "flush")
}

func (r *Runner) save(ctx context.Context, reason string) error {
	r.mu.RLock()
	snap := r.snapshot.clone()
	r.mu.RUnlock()

	n, err := r.store.Save(ctx, snap)
	if err != nil {
		r.metrics(func(m *PrometheusMetrics) { m.RecordSnapshotWrite(reason, "error") })
		r.emit(emit.Event{
			Msg:   emit.MsgSnapshotSaveFailed,
			Level: emit.LevelDebug,
			Meta:  map[string]interface{}{"reason": reason, "location": r.location, "error": err.Error()},
		})
		return err
	}

	r.metrics(func(m *PrometheusMetrics) { m.RecordSnapshotWrite(reason, "success") })
	r.emit(emit.Event{
		Msg:   emit.MsgSnapshotSaved,
		Level: emit.LevelDebug,
		Meta:  map[string]interface{}{"reason": reason, "location": r.location, "bytes": n},
	})
	return nil
}

// step implements Instance.Step.
func (r *Runner) step(ctx context.Context, inst *Instance, fn StepFunc) (interface{}, error) {
	pos := inst.cursor

	r.mu.RLock()
	steps := r.snapshot.Computations[inst.name]
	var (
		replayed interface{}
		hit      bool
	)
	if len(steps) > pos {
		replayed, hit = steps[pos], true
	}
	r.mu.RUnlock()

	if hit {
		inst.cursor++
		r.metrics(func(m *PrometheusMetrics) { m.RecordStep(inst.name, "replayed", 0) })
		r.emit(emit.Event{
			Computation: inst.name,
			Step:        pos,
			Msg:         emit.MsgStepReplayed,
			Level:       emit.LevelVerbose,
		})
		return replayed, nil
	}

	if fn == nil {
		return nil, fmt.Errorf("step %d of %s: nil step function", pos, inst.name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stepCtx := context.WithValue(ctx, stepInfoKey{}, StepInfo{
		Location:    r.location,
		Computation: inst.name,
		Index:       pos,
	})

	start := time.Now()
	v, err := fn(stepCtx)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	list := r.snapshot.Computations[inst.name]
	if len(list) > pos {
		list = list[:pos]
	}
	r.snapshot.Computations[inst.name] = append(list, v)
	r.mu.Unlock()

	inst.cursor++
	r.metrics(func(m *PrometheusMetrics) { m.RecordStep(inst.name, "executed", elapsed) })
	r.emit(emit.Event{
		Computation: inst.name,
		Step:        pos,
		Msg:         emit.MsgStepExecuted,
		Level:       emit.LevelVerbose,
		Meta:        map[string]interface{}{"duration_ms": elapsed.Milliseconds()},
	})
	return v, nil
}

// Result returns the result of the named computation from the current run.
func (r *Runner) Result(name string) (RunResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.results {
		if res.Name == name {
			return res, true
		}
	}
	return RunResult{}, false
}

// ResultFor returns the result of computation c from the current run.
func (r *Runner) ResultFor(c Computation) (RunResult, bool) {
	if c == nil {
		return RunResult{}, false
	}
	return r.Result(c.Name())
}

// Last returns the most recent result of the current run.
func (r *Runner) Last() (RunResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.results) == 0 {
		return RunResult{}, false
	}
	return r.results[len(r.results)-1], true
}

// Results returns a copy of the results of the current run, in order.
func (r *Runner) Results() []RunResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RunResult, len(r.results))
	copy(out, r.results)
	return out
}

// Recovered reports whether the current run adopted a persisted snapshot.
func (r *Runner) Recovered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recovered
}

// Snapshot returns a copy of the working snapshot.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.clone()
}

// Location returns the resolved recovery location.
func (r *Runner) Location() string { return r.location }

// RunID returns the ID attached to events of the current (or last) run.
func (r *Runner) RunID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runID
}

func (r *Runner) codec() codec.Codec { return r.cfg.codec }

func (r *Runner) emit(e emit.Event) {
	if !r.emitter.Enabled(e.Level) {
		return
	}
	e.RunID = r.RunID()
	r.emitter.Emit(e)
}

func (r *Runner) logDecision(outcome string, recovered bool) {
	r.metrics(func(m *PrometheusMetrics) { m.RecordRecoveryDecision(outcome) })
	r.emit(emit.Event{
		Msg:   emit.MsgRecoveryDecision,
		Level: emit.LevelDebug,
		Meta: map[string]interface{}{
			"outcome":   outcome,
			"recovered": recovered,
			"location":  r.location,
		},
	})
}

func (r *Runner) recordRun(outcome string) {
	r.metrics(func(m *PrometheusMetrics) { m.RecordRun(outcome) })
}

func (r *Runner) metrics(fn func(*PrometheusMetrics)) {
	if r.cfg.metrics != nil {
		fn(r.cfg.metrics)
	}
}
