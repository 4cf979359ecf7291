package emit

// Emitter receives observability events from a Runner.
//
// The Runner's logger capability is an Emitter. Implementations should:
//   - Avoid blocking: emission happens inline with step execution
//   - Never panic: a broken backend must not fail a run
//
// Verbosity gating is applied by wrapping an Emitter with NewLevelEmitter,
// so backends themselves do not need to inspect Event.Level.
type Emitter interface {
	// Emit sends an event to the configured backend.
	Emit(event Event)
}

// LevelEmitter forwards events at or below a verbosity threshold.
//
// With a threshold of LevelNone nothing is forwarded. With LevelDebug the
// run-level and computation-level events pass; LevelVerbose adds the
// per-step events.
type LevelEmitter struct {
	next  Emitter
	level Level
}

// NewLevelEmitter wraps next so that only events with Level <= level reach it.
func NewLevelEmitter(next Emitter, level Level) *LevelEmitter {
	if next == nil {
		next = NewNullEmitter()
	}
	return &LevelEmitter{next: next, level: level}
}

// Enabled reports whether events of the given level would be forwarded.
func (l *LevelEmitter) Enabled(level Level) bool {
	return l.level > LevelNone && level <= l.level
}

// Level returns the configured threshold.
func (l *LevelEmitter) Level() Level {
	return l.level
}

// Emit forwards the event when its level is enabled.
func (l *LevelEmitter) Emit(event Event) {
	if !l.Enabled(event.Level) {
		return
	}
	l.next.Emit(event)
}

// MultiEmitter fans each event out to several emitters in order.
type MultiEmitter []Emitter

// Emit forwards the event to every wrapped emitter.
func (m MultiEmitter) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
