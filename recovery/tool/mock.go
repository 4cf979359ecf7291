package tool

import (
	"context"
	"sync"

	"github.com/dshills/recovery-go/recovery"
)

// MockTool is a scripted Tool for tests. Responses are returned in order
// and the last one repeats; Err, when set, is returned instead.
type MockTool struct {
	ToolName  string
	Responses []map[string]interface{}
	Err       error
	Calls     []MockToolCall

	mu        sync.Mutex
	callIndex int
}

// MockToolCall records the input of one Call and, when the call ran inside
// a recovery step, that step.
type MockToolCall struct {
	Input  map[string]interface{}
	Step   recovery.StepInfo
	InStep bool
}

// Name returns ToolName.
func (m *MockTool) Name() string { return m.ToolName }

// Call implements Tool.
func (m *MockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := MockToolCall{Input: input}
	call.Step, call.InStep = recovery.StepFromContext(ctx)
	m.Calls = append(m.Calls, call)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears the call history and rewinds Responses.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of calls so far.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// Keys returns the step idempotency key of each call, or "" for calls made
// outside a step.
func (m *MockTool) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		if c.InStep {
			out[i] = c.Step.Key()
		}
	}
	return out
}
