package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, grouped
// by run ID. It is safe for concurrent use.
//
// Typical use is in tests and tooling that need to assert on what a run did:
//
//	buf := emit.NewBufferedEmitter()
//	runner, _ := recovery.New(deps,
//		recovery.WithEmitter(buf),
//		recovery.WithDebugLevel(emit.LevelVerbose),
//	)
//	_, _ = runner.Run(ctx, entries, nil)
//	replayed := buf.GetHistoryWithFilter(runner.RunID(), emit.HistoryFilter{Msg: emit.MsgStepReplayed})
//
// All events are kept until Clear is called.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
}

// HistoryFilter selects events from a run's history. Zero-valued fields do
// not filter; set fields are combined with AND.
type HistoryFilter struct {
	Computation string // Filter by computation name (empty = no filter)
	Msg         string // Filter by event kind (empty = no filter)
	MinStep     *int   // Minimum step cursor (nil = no filter)
	MaxStep     *int   // Maximum step cursor (nil = no filter)
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// GetHistory returns a copy of all events recorded for runID, in emission
// order. The result is never nil.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns the events for runID matching filter.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[runID] {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

// Count returns the number of events for runID with the given kind.
func (b *BufferedEmitter) Count(runID, msg string) int {
	return len(b.GetHistoryWithFilter(runID, HistoryFilter{Msg: msg}))
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.Computation != "" && event.Computation != filter.Computation {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinStep != nil && event.Step < *filter.MinStep {
		return false
	}
	if filter.MaxStep != nil && event.Step > *filter.MaxStep {
		return false
	}
	return true
}

// Clear removes the events of runID, or of every run when runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
	} else {
		delete(b.events, runID)
	}
}
