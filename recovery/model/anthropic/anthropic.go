// Package anthropic adapts Anthropic's Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/recovery-go/recovery/model"
)

// DefaultModel is used when NewChatModel gets an empty model name.
const DefaultModel = "claude-3-5-sonnet-20241022"

const defaultMaxTokens = 4096

// ChatModel implements model.ChatModel for Claude.
//
// System messages are sent through the separate system parameter the
// Messages API expects; the remaining turns keep their order.
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	out, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "Hello"}}, nil)
type ChatModel struct {
	modelName string
	maxTokens int64
	client    messagesClient
}

// messagesClient is the part of the SDK the adapter uses.
type messagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// NewChatModel creates a ChatModel authenticated with apiKey.
func NewChatModel(apiKey, modelName string) *ChatModel {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newChatModel(&client.Messages, modelName)
}

func newChatModel(client messagesClient, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		modelName: modelName,
		maxTokens: defaultMaxTokens,
		client:    client,
	}
}

// SetMaxTokens changes the reply token limit (default 4096).
func (m *ChatModel) SetMaxTokens(n int64) {
	if n > 0 {
		m.maxTokens = n
	}
}

// ModelName returns the model requests are sent to.
func (m *ChatModel) ModelName() string { return m.modelName }

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	msg, err := m.client.New(ctx, m.buildParams(messages, tools))
	if err != nil {
		return model.ChatOut{}, translateError(err)
	}
	return convertResponse(msg)
}

func (m *ChatModel) buildParams(messages []model.Message, tools []model.ToolSpec) anthropic.MessageNewParams {
	systemPrompt, conversation := extractSystemPrompt(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(conversation)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	for _, msg := range conversation {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == model.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	for _, tool := range tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: convertTool(tool)})
	}
	return params
}

// extractSystemPrompt joins system messages and returns the other turns.
func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversation []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		}
		conversation = append(conversation, msg)
	}
	return systemPrompt, conversation
}

func convertTool(tool model.ToolSpec) *anthropic.ToolParam {
	schema := anthropic.ToolInputSchemaParam{}
	if props, ok := tool.Schema["properties"]; ok {
		schema.Properties = props
	}
	switch req := tool.Schema["required"].(type) {
	case []string:
		schema.Required = req
	case []interface{}:
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	p := &anthropic.ToolParam{
		Name:        tool.Name,
		InputSchema: schema,
	}
	if tool.Description != "" {
		p.Description = anthropic.String(tool.Description)
	}
	return p
}

func convertResponse(msg *anthropic.Message) (model.ChatOut, error) {
	if msg == nil {
		return model.ChatOut{}, errors.New("anthropic: empty response")
	}

	out := model.ChatOut{
		Usage: model.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += block.Text
		case "tool_use":
			call := model.ToolCall{ID: block.ID, Name: block.Name}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &call.Input); err != nil {
					return model.ChatOut{}, fmt.Errorf("anthropic: invalid input for tool %s: %w", block.Name, err)
				}
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
	}
	return out, nil
}

func translateError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{
			Provider:   "anthropic",
			StatusCode: apiErr.StatusCode,
			Message:    http.StatusText(apiErr.StatusCode),
			Err:        err,
		}
	}
	return err
}
