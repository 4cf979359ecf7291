// Package recovery runs an ordered list of named computations whose
// internal steps are checkpointed, so that a restarted run replays recorded
// step results instead of recomputing them.
//
// A Runner owns one Snapshot: the caller's dependency description plus, for
// every computation name, the ordered list of step results recorded so far.
// At the start of Run the Runner decides whether a persisted Snapshot
// applies (same dependencies, not forced from scratch). Each call to
// Instance.Step then either replays the value recorded at the current
// cursor position or invokes the step function and records its result.
//
// The Snapshot is written only when a computation fails or when Flush is
// called:
//
//	runner, err := recovery.New(recovery.Dependencies{"schema": "v3"},
//		recovery.WithRecoveryLocation("./.recovery"),
//	)
//	if err != nil {
//		return err
//	}
//	defer runner.Flush(ctx)
//
//	result, err := runner.Run(ctx, recovery.Entries(fetch, transform, load), input)
//
// Step results are matched by call order. A computation must make the same
// sequence of Step calls on every run for replay to be correct.
package recovery
