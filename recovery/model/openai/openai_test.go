package openai

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dshills/recovery-go/recovery/model"
)

type fakeCompletions struct {
	params openai.ChatCompletionNewParams
	errs   []error
	resp   *openai.ChatCompletion
	calls  int
}

func (f *fakeCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = body
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return f.resp, nil
}

func textCompletion(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: text},
		}},
		Usage: openai.CompletionUsage{PromptTokens: 3, CompletionTokens: 4},
	}
}

func newTestModel(fake *fakeCompletions) *ChatModel {
	m := newChatModel(fake, "")
	m.retryDelay = time.Millisecond
	return m
}

func TestNewChatModel_DefaultModel(t *testing.T) {
	if got := newTestModel(&fakeCompletions{}).ModelName(); got != DefaultModel {
		t.Errorf("expected %s, got %s", DefaultModel, got)
	}
}

func TestChatModel_BuildsParams(t *testing.T) {
	fake := &fakeCompletions{resp: textCompletion("ok")}
	m := newTestModel(fake)

	_, err := m.Chat(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}, []model.ToolSpec{{Name: "lookup", Schema: map[string]interface{}{"type": "object"}}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if string(fake.params.Model) != DefaultModel {
		t.Errorf("expected default model, got %s", fake.params.Model)
	}
	if len(fake.params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(fake.params.Messages))
	}
	if fake.params.Messages[0].OfSystem == nil || fake.params.Messages[2].OfAssistant == nil {
		t.Error("expected system and assistant roles preserved")
	}
	if len(fake.params.Tools) != 1 || fake.params.Tools[0].Function.Name != "lookup" {
		t.Errorf("unexpected tools: %+v", fake.params.Tools)
	}
}

func TestChatModel_ConvertsResponse(t *testing.T) {
	resp := textCompletion("")
	resp.Choices[0].Message.ToolCalls = []openai.ChatCompletionMessageToolCall{{
		ID: "call_1",
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      "lookup",
			Arguments: `{"id":42}`,
		},
	}}
	m := newTestModel(&fakeCompletions{resp: resp})

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "find 42"}}, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "lookup" || out.ToolCalls[0].Input["id"] != float64(42) {
		t.Errorf("unexpected tool calls: %+v", out.ToolCalls)
	}
	if out.Usage.InputTokens != 3 || out.Usage.OutputTokens != 4 {
		t.Errorf("unexpected usage: %+v", out.Usage)
	}
}

func TestChatModel_RetriesTransientErrors(t *testing.T) {
	fake := &fakeCompletions{
		errs: []error{&openai.Error{StatusCode: 503}, &openai.Error{StatusCode: 429}},
		resp: textCompletion("third time"),
	}
	m := newTestModel(fake)

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if out.Text != "third time" || fake.calls != 3 {
		t.Errorf("expected success on third call, got %q after %d calls", out.Text, fake.calls)
	}
}

func TestChatModel_PermanentErrorNotRetried(t *testing.T) {
	fake := &fakeCompletions{errs: []error{&openai.Error{StatusCode: 401}}}
	m := newTestModel(fake)

	_, err := m.Chat(context.Background(), nil, nil)
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("expected a single call, got %d", fake.calls)
	}
}

func TestChatModel_RetriesExhausted(t *testing.T) {
	unavailable := &openai.Error{StatusCode: 502}
	fake := &fakeCompletions{errs: []error{unavailable, unavailable, unavailable, unavailable}}
	m := newTestModel(fake)

	_, err := m.Chat(context.Background(), nil, nil)
	if !errors.Is(err, model.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if fake.calls != m.maxRetries+1 {
		t.Errorf("expected %d calls, got %d", m.maxRetries+1, fake.calls)
	}
}

func TestChatModel_EmptyChoices(t *testing.T) {
	m := newTestModel(&fakeCompletions{resp: &openai.ChatCompletion{}})
	if _, err := m.Chat(context.Background(), nil, nil); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("invalid model"), false},
		{context.Canceled, false},
		{&model.ProviderError{StatusCode: 500}, true},
		{&model.ProviderError{StatusCode: 400}, false},
	}
	for _, tt := range tests {
		if got := isTransientError(tt.err); got != tt.want {
			t.Errorf("isTransientError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestChatModel_Live(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	out, err := NewChatModel(apiKey, "").Chat(context.Background(),
		[]model.Message{{Role: model.RoleUser, Content: "Reply with the single word: pong"}}, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if out.Text == "" {
		t.Error("expected non-empty reply")
	}
}
