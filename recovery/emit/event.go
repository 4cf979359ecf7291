// Package emit provides the logging and tracing capability used by the recovery runner.
package emit

// Event represents an observability event emitted while a Runner executes.
//
// Events cover:
//   - The recovery decision made at the start of a run
//   - Computation start, completion and failure
//   - Each step boundary crossing (replayed or executed)
//   - Snapshot writes (on failure and on explicit flush)
//
// Events are passed to an Emitter which may print them, buffer them for
// inspection or export them as OpenTelemetry spans.
type Event struct {
	// RunID identifies the Runner execution that produced the event.
	RunID string

	// Computation is the stable name of the computation that emitted the
	// event. Empty for run-level events (recovery decision, snapshot writes).
	Computation string

	// Step is the step cursor at the time of the event (0-indexed).
	// Zero for events that are not tied to a step.
	Step int

	// Msg is the event kind, e.g. "computation_start" or "step_replayed".
	Msg string

	// Level is the verbosity the event belongs to. A gated emitter drops
	// events whose level is above its configured threshold.
	Level Level

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": Step or computation duration in milliseconds
	//   - "error": Error details
	//   - "recovered": Outcome of the recovery decision
	//   - "location": Recovery location a snapshot was read from or written to
	//   - "bytes": Encoded snapshot size
	Meta map[string]interface{}
}

// Event kinds emitted by the runner.
const (
	MsgRecoveryDecision    = "recovery_decision"
	MsgComputationStart    = "computation_start"
	MsgComputationComplete = "computation_complete"
	MsgComputationFailed   = "computation_failed"
	MsgStepReplayed        = "step_replayed"
	MsgStepExecuted        = "step_executed"
	MsgSnapshotSaved       = "snapshot_saved"
	MsgSnapshotSaveFailed  = "snapshot_save_failed"
)
