package model

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/recovery-go/recovery"
	"github.com/dshills/recovery-go/recovery/store"
)

func TestCheckpointed_ReplaysReplies(t *testing.T) {
	ctx := context.Background()
	tr := store.NewMemTransport()
	mock := &MockChatModel{Responses: []ChatOut{
		{Text: "outline", Usage: Usage{InputTokens: 10, OutputTokens: 5}},
		{Text: "draft", ToolCalls: []ToolCall{{ID: "t1", Name: "search", Input: map[string]interface{}{"q": "go"}}}},
		{Text: "final"},
	}}

	failOnce := true
	writer := recovery.Func("writer", func(ctx context.Context, inst *recovery.Instance, _ interface{}) (interface{}, error) {
		llm := Checkpointed(inst, mock)

		outline, err := llm.Chat(ctx, []Message{{Role: RoleUser, Content: "outline"}}, nil)
		if err != nil {
			return nil, err
		}
		draft, err := llm.Chat(ctx, []Message{{Role: RoleUser, Content: outline.Text}}, nil)
		if err != nil {
			return nil, err
		}
		if failOnce {
			failOnce = false
			return nil, errors.New("interrupted")
		}
		if len(draft.ToolCalls) != 1 || draft.ToolCalls[0].Input["q"] != "go" {
			t.Errorf("unexpected replayed draft: %+v", draft)
		}
		final, err := llm.Chat(ctx, []Message{{Role: RoleUser, Content: draft.Text}}, nil)
		if err != nil {
			return nil, err
		}
		return final.Text, nil
	})

	newRunner := func() *recovery.Runner {
		r, err := recovery.New(nil, recovery.WithTransport(tr), recovery.WithRecoveryLocation("llm"))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return r
	}

	if _, err := newRunner().Run(ctx, recovery.Entries(writer), nil); err == nil {
		t.Fatal("expected first run to fail")
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", mock.CallCount())
	}

	res, err := newRunner().Run(ctx, recovery.Entries(writer), nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if res.Value != "final" {
		t.Errorf("expected final, got %v", res.Value)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected one more provider call, got %d total", mock.CallCount())
	}
	if got := mock.Calls[2].Messages[0].Content; got != "draft" {
		t.Errorf("expected replayed draft text as prompt, got %q", got)
	}
	steps := mock.Steps()
	if len(steps) != 3 || steps[0] != 0 || steps[1] != 1 || steps[2] != 2 {
		t.Errorf("expected provider reached at steps [0 1 2], got %v", steps)
	}
	if c := mock.Calls[2]; c.Step.Computation != "writer" || c.Step.Location != "llm" {
		t.Errorf("unexpected step info on resumed call: %+v", c.Step)
	}
}

func TestMockChatModel_OutsideStep(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "hi"}}}
	if _, err := mock.Chat(context.Background(), nil, nil); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if mock.Calls[0].InStep {
		t.Error("expected call outside a step")
	}
	if steps := mock.Steps(); len(steps) != 0 {
		t.Errorf("expected no step indices, got %v", steps)
	}
}

func TestCheckpointed_ErrorNotRecorded(t *testing.T) {
	ctx := context.Background()
	tr := store.NewMemTransport()
	mock := &MockChatModel{Err: &ProviderError{Provider: "mock", StatusCode: 429, Message: "slow down"}}

	comp := recovery.Func("c", func(ctx context.Context, inst *recovery.Instance, _ interface{}) (interface{}, error) {
		return Checkpointed(inst, mock).Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}}, nil)
	})

	r, err := recovery.New(nil, recovery.WithTransport(tr), recovery.WithRecoveryLocation("llm"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = r.Run(ctx, recovery.Entries(comp), nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	snap := r.Snapshot()
	if steps := snap.Steps("c"); len(steps) != 0 {
		t.Errorf("expected no recorded reply, got %#v", steps)
	}
}

func TestProviderError(t *testing.T) {
	tests := []struct {
		status    int
		target    error
		retryable bool
	}{
		{401, ErrUnauthorized, false},
		{403, ErrUnauthorized, false},
		{429, ErrRateLimited, true},
		{503, ErrUnavailable, true},
	}

	for _, tt := range tests {
		err := &ProviderError{Provider: "p", StatusCode: tt.status, Message: "m"}
		if !errors.Is(err, tt.target) {
			t.Errorf("status %d: expected errors.Is(%v)", tt.status, tt.target)
		}
		if err.Retryable() != tt.retryable {
			t.Errorf("status %d: expected retryable %v", tt.status, tt.retryable)
		}
	}

	bad := &ProviderError{Provider: "p", StatusCode: 400, Message: "bad request"}
	if errors.Is(bad, ErrRateLimited) || errors.Is(bad, ErrUnavailable) || errors.Is(bad, ErrUnauthorized) {
		t.Error("expected 400 to match no sentinel")
	}
	if bad.Error() != "p: status 400: bad request" {
		t.Errorf("unexpected message %q", bad.Error())
	}
}
