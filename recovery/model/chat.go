// Package model adapts LLM chat providers so their calls can be made
// inside a recovery step.
//
// A provider reply is usually the most expensive thing a computation
// produces. Wrapping a ChatModel with Checkpointed records every reply in
// the Runner's snapshot, so a resumed run replays the replies it already
// paid for and only calls the provider for the rest.
package model

import (
	"context"

	"github.com/dshills/recovery-go/recovery"
)

// ChatModel is a chat completion provider.
//
// Implementations convert Message values to the provider format, honor
// ctx cancellation and return provider failures as *ProviderError where
// the provider reports a status.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may ask to call. Schema is a JSON
// Schema object.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
}

// ChatOut is a provider reply. The json tags define its shape in a
// snapshot.
type ChatOut struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input,omitempty"`
}

// Usage reports token counts for one reply.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Checkpointed returns a ChatModel whose every Chat call is a step of
// inst. On a resumed run the recorded reply is returned and m is not
// called. Calls must happen in the same order on every run.
//
//	func (s *Summarize) Run(ctx context.Context, inst *recovery.Instance, in any) (any, error) {
//		llm := model.Checkpointed(inst, s.Model)
//		out, err := llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: in.(string)}}, nil)
//		...
//	}
func Checkpointed(inst *recovery.Instance, m ChatModel) ChatModel {
	return &checkpointed{inst: inst, model: m}
}

type checkpointed struct {
	inst  *recovery.Instance
	model ChatModel
}

func (c *checkpointed) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	return recovery.StepAs(ctx, c.inst, func(ctx context.Context) (ChatOut, error) {
		return c.model.Chat(ctx, messages, tools)
	})
}
