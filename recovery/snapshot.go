package recovery

import "time"

// Snapshot is the persisted recovery state of a Runner.
//
// Computations maps a computation name to its step results in call order:
// the Nth element is the result of that computation's Nth Step call.
type Snapshot struct {
	Dependencies Dependencies             `json:"dependencies"`
	Computations map[string][]interface{} `json:"computations"`
	Error        *ErrorRecord             `json:"error,omitempty"`
}

// ErrorRecord describes the failure that caused the last snapshot write.
type ErrorRecord struct {
	Computation string    `json:"computation"`
	Message     string    `json:"message"`
	Time        time.Time `json:"time"`
}

func newSnapshot(deps Dependencies) *Snapshot {
	return &Snapshot{
		Dependencies: deps,
		Computations: make(map[string][]interface{}),
	}
}

// Steps returns the recorded step results for the named computation.
func (s *Snapshot) Steps(name string) []interface{} {
	if s == nil {
		return nil
	}
	return s.Computations[name]
}

// clone copies the snapshot's map and slices so the copy can be encoded
// while the original keeps changing. Step values are shared.
func (s *Snapshot) clone() Snapshot {
	out := Snapshot{
		Dependencies: s.Dependencies,
		Computations: make(map[string][]interface{}, len(s.Computations)),
	}
	for name, steps := range s.Computations {
		cp := make([]interface{}, len(steps))
		copy(cp, steps)
		out.Computations[name] = cp
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
