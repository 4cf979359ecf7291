package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter implements Emitter by writing one line per event to a writer.
// It is the console logger a Runner uses when none is configured.
//
// Supports two output modes:
//   - Text mode (default): severity token first, then key=value pairs
//   - JSON mode: one JSON object per line
//
// Example text output:
//
//	[debug] computation_start runID=run-001 computation=fetch step=0
//	[verbose] step_replayed runID=run-001 computation=fetch step=2
//
// Example JSON output:
//
//	{"level":"debug","msg":"computation_start","runID":"run-001","computation":"fetch","step":0,"meta":null}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer (os.Stderr when nil).
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stderr
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

// Emit writes an event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Level       string                 `json:"level"`
		Msg         string                 `json:"msg"`
		RunID       string                 `json:"runID"`
		Computation string                 `json:"computation"`
		Step        int                    `json:"step"`
		Meta        map[string]interface{} `json:"meta"`
	}{
		Level:       event.Level.String(),
		Msg:         event.Msg,
		RunID:       event.RunID,
		Computation: event.Computation,
		Step:        event.Step,
		Meta:        event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}

	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] %s runID=%s", event.Level, event.Msg, event.RunID)
	if event.Computation != "" {
		fmt.Fprintf(l.writer, " computation=%s step=%d", event.Computation, event.Step)
	}

	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	fmt.Fprint(l.writer, "\n")
}
