// Package openai adapts OpenAI's Chat Completions API to model.ChatModel.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/recovery-go/recovery/model"
)

// DefaultModel is used when NewChatModel gets an empty model name.
const DefaultModel = "gpt-4o-mini"

// ChatModel implements model.ChatModel for OpenAI.
//
// Transient failures (rate limits, 5xx, network errors) are retried up to
// three times, one second apart, with the delay growing for rate limits.
// A Checkpointed wrapper sees only the final outcome.
type ChatModel struct {
	modelName  string
	client     completionsClient
	maxRetries int
	retryDelay time.Duration
}

// completionsClient is the part of the SDK the adapter uses.
type completionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// NewChatModel creates a ChatModel authenticated with apiKey.
func NewChatModel(apiKey, modelName string) *ChatModel {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newChatModel(&client.Chat.Completions, modelName)
}

func newChatModel(client completionsClient, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		modelName:  modelName,
		client:     client,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// ModelName returns the model requests are sent to.
func (m *ChatModel) ModelName() string { return m.modelName }

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	params := m.buildParams(messages, tools)

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		completion, err := m.client.New(ctx, params)
		if err == nil {
			return convertResponse(completion)
		}

		lastErr = translateError(err)
		if !isTransientError(lastErr) {
			return model.ChatOut{}, lastErr
		}
		if attempt >= m.maxRetries {
			break
		}

		delay := m.retryDelay
		if errors.Is(lastErr, model.ErrRateLimited) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}

	return model.ChatOut{}, fmt.Errorf("openai: failed after %d retries: %w", m.maxRetries, lastErr)
}

func (m *ChatModel) buildParams(messages []model.Message, tools []model.ToolSpec) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.modelName),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	for _, tool := range tools {
		fn := shared.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: shared.FunctionParameters(tool.Schema),
		}
		if tool.Description != "" {
			fn.Description = openai.String(tool.Description)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: fn})
	}
	return params
}

func convertResponse(completion *openai.ChatCompletion) (model.ChatOut, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return model.ChatOut{}, errors.New("openai: no choices in response")
	}

	msg := completion.Choices[0].Message
	out := model.ChatOut{
		Text: msg.Content,
		Usage: model.Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
	}

	for _, tc := range msg.ToolCalls {
		call := model.ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Input); err != nil {
				return model.ChatOut{}, fmt.Errorf("openai: invalid arguments for tool %s: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

func translateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{
			Provider:   "openai",
			StatusCode: apiErr.StatusCode,
			Message:    http.StatusText(apiErr.StatusCode),
			Err:        err,
		}
	}
	return err
}

// isTransientError reports whether a retry may succeed.
func isTransientError(err error) bool {
	var pe *model.ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection reset", "connection refused", "temporary"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
