package anthropic

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/recovery-go/recovery/model"
)

type fakeMessages struct {
	params anthropic.MessageNewParams
	resp   *anthropic.Message
	err    error
	calls  int
}

func (f *fakeMessages) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.calls++
	f.params = params
	return f.resp, f.err
}

func TestNewChatModel_DefaultModel(t *testing.T) {
	if got := newChatModel(&fakeMessages{}, "").ModelName(); got != DefaultModel {
		t.Errorf("expected %s, got %s", DefaultModel, got)
	}
}

func TestChatModel_BuildsParams(t *testing.T) {
	fake := &fakeMessages{resp: &anthropic.Message{}}
	m := newChatModel(fake, "")

	messages := []model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleSystem, Content: "no emoji"},
		{Role: model.RoleUser, Content: "bye"},
	}
	tools := []model.ToolSpec{{
		Name:        "search",
		Description: "web search",
		Schema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"q": map[string]interface{}{"type": "string"}},
			"required":   []interface{}{"q"},
		},
	}}

	if _, err := m.Chat(context.Background(), messages, tools); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	p := fake.params
	if string(p.Model) != DefaultModel {
		t.Errorf("expected default model, got %s", p.Model)
	}
	if p.MaxTokens != defaultMaxTokens {
		t.Errorf("expected max tokens %d, got %d", defaultMaxTokens, p.MaxTokens)
	}
	if len(p.System) != 1 || p.System[0].Text != "be brief\n\nno emoji" {
		t.Errorf("unexpected system prompt: %+v", p.System)
	}
	if len(p.Messages) != 3 {
		t.Fatalf("expected 3 conversation messages, got %d", len(p.Messages))
	}
	if p.Messages[1].Role != anthropic.MessageParamRoleAssistant {
		t.Errorf("expected assistant role, got %s", p.Messages[1].Role)
	}
	if len(p.Tools) != 1 || p.Tools[0].OfTool == nil || p.Tools[0].OfTool.Name != "search" {
		t.Fatalf("unexpected tools: %+v", p.Tools)
	}
	if req := p.Tools[0].OfTool.InputSchema.Required; len(req) != 1 || req[0] != "q" {
		t.Errorf("unexpected required fields: %v", req)
	}
}

func TestChatModel_ConvertsResponse(t *testing.T) {
	fake := &fakeMessages{resp: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Looking it up."},
			{Type: "tool_use", ID: "tu_1", Name: "search", Input: []byte(`{"q":"golang"}`)},
		},
		Usage: anthropic.Usage{InputTokens: 12, OutputTokens: 7},
	}}
	m := newChatModel(fake, "claude-3-haiku-20240307")

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "search golang"}}, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if out.Text != "Looking it up." {
		t.Errorf("unexpected text %q", out.Text)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].ID != "tu_1" || out.ToolCalls[0].Input["q"] != "golang" {
		t.Errorf("unexpected tool calls: %+v", out.ToolCalls)
	}
	if out.Usage.InputTokens != 12 || out.Usage.OutputTokens != 7 {
		t.Errorf("unexpected usage: %+v", out.Usage)
	}
}

func TestChatModel_Errors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeMessages{}
	m := newChatModel(fake, "")
	if _, err := m.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if fake.calls != 0 {
		t.Error("expected no API call with a canceled context")
	}

	plain := errors.New("network down")
	fake.err = plain
	if _, err := m.Chat(context.Background(), nil, nil); !errors.Is(err, plain) {
		t.Errorf("expected network error passed through, got %v", err)
	}

	fake.err = &anthropic.Error{StatusCode: 429}
	_, err := m.Chat(context.Background(), nil, nil)
	if !errors.Is(err, model.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	fake.err, fake.resp = nil, nil
	if _, err := m.Chat(context.Background(), nil, nil); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestChatModel_Live(t *testing.T) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		t.Skip("ANTHROPIC_API_KEY not set")
	}

	m := NewChatModel(apiKey, "")
	m.SetMaxTokens(64)
	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "Reply with the single word: pong"}}, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if out.Text == "" {
		t.Error("expected non-empty reply")
	}
}
