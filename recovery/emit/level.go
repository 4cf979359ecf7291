package emit

import (
	"fmt"
	"strings"
)

// Level is the ordered verbosity of an event or of a logger threshold.
// LevelNone < LevelDebug < LevelVerbose.
type Level int

const (
	// LevelNone disables logging entirely.
	LevelNone Level = iota
	// LevelDebug covers run and computation lifecycle events.
	LevelDebug
	// LevelVerbose adds one event per step boundary crossing.
	LevelVerbose
)

// String returns the lowercase token used as the severity prefix in logs.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelDebug:
		return "debug"
	case LevelVerbose:
		return "verbose"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts "none", "debug" or "verbose" (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LevelNone, nil
	case "debug":
		return LevelDebug, nil
	case "verbose":
		return LevelVerbose, nil
	default:
		return LevelNone, fmt.Errorf("unknown debug level %q", s)
	}
}
