package model

import (
	"context"
	"sync"

	"github.com/dshills/recovery-go/recovery"
)

// MockChatModel is a scripted ChatModel for tests.
//
// Each call returns the next element of Responses; once they are used up
// the last one repeats. Err, when set, is returned instead. Every call is
// recorded with the recovery step it ran in, so tests can assert which
// steps reached the provider and which were replayed.
//
//	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "first"}, {Text: "second"}}}
type MockChatModel struct {
	Responses []ChatOut
	Err       error
	Calls     []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records the arguments of one Chat call. Step is set when
// the call ran inside a recovery step (InStep).
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
	Step     recovery.StepInfo
	InStep   bool
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := MockChatCall{Messages: messages, Tools: tools}
	call.Step, call.InStep = recovery.StepFromContext(ctx)
	m.Calls = append(m.Calls, call)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
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
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of Chat calls so far.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// Steps returns the step index of each call made inside a step, in order.
func (m *MockChatModel) Steps() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int, 0, len(m.Calls))
	for _, c := range m.Calls {
		if c.InStep {
			out = append(out, c.Step.Index)
		}
	}
	return out
}
