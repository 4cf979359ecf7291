// Package google adapts the Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/recovery-go/recovery/model"
)

// DefaultModel is used when NewChatModel gets an empty model name.
const DefaultModel = "gemini-2.5-flash"

// ChatModel implements model.ChatModel for Gemini.
//
// System messages become the model's system instruction. The last message
// is sent as the new turn and earlier ones as chat history, with the
// assistant role mapped to Gemini's "model" role. Replies blocked by a
// safety filter fail with *SafetyFilterError.
type ChatModel struct {
	modelName string
	client    generator
}

type generator interface {
	generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error)
}

type request struct {
	system  *genai.Content
	history []*genai.Content
	parts   []genai.Part
	tools   []*genai.Tool
}

// NewChatModel creates a ChatModel authenticated with apiKey.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// ModelName returns the model requests are sent to.
func (m *ChatModel) ModelName() string { return m.modelName }

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	req := convertMessages(messages)
	if len(tools) > 0 {
		req.tools = convertTools(tools)
	}

	resp, err := m.client.generate(ctx, req)
	if err != nil {
		return model.ChatOut{}, err
	}
	return convertResponse(resp)
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("google: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	gm := client.GenerativeModel(c.modelName)
	gm.SystemInstruction = req.system
	gm.Tools = req.tools

	session := gm.StartChat()
	session.History = req.history

	resp, err := session.SendMessage(ctx, req.parts...)
	if err != nil {
		return nil, fmt.Errorf("google: API error: %w", err)
	}
	return resp, nil
}

func convertMessages(messages []model.Message) request {
	var req request
	var turns []*genai.Content

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case model.RoleSystem:
			if req.system == nil {
				req.system = &genai.Content{}
			}
			req.system.Parts = append(req.system.Parts, genai.Text(msg.Content))
		case model.RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}

	if len(turns) > 0 {
		last := turns[len(turns)-1]
		req.history = turns[:len(turns)-1]
		req.parts = last.Parts
	}
	return req
}

func convertTools(tools []model.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertSchema converts a JSON Schema object. Unknown keywords are
// dropped.
func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{Type: genai.TypeObject}
	if t, ok := schema["type"].(string); ok {
		out.Type = convertType(t)
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				out.Properties[name] = convertSchema(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		out.Items = convertSchema(items)
	}
	if enum, ok := schema["enum"].([]interface{}); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}

	switch required := schema["required"].(type) {
	case []string:
		out.Required = required
	case []interface{}:
		for _, r := range required {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func convertType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	if resp == nil {
		return model.ChatOut{}, errors.New("google: empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		return model.ChatOut{}, &SafetyFilterError{reason: fmt.Sprint(fb.BlockReason), category: blockedCategory(fb.SafetyRatings)}
	}

	var out model.ChatOut
	if u := resp.UsageMetadata; u != nil {
		out.Usage = model.Usage{
			InputTokens:  int64(u.PromptTokenCount),
			OutputTokens: int64(u.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 {
		return out, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return model.ChatOut{}, &SafetyFilterError{reason: fmt.Sprint(candidate.FinishReason), category: blockedCategory(candidate.SafetyRatings)}
	}
	if candidate.Content == nil {
		return out, nil
	}

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: p.Name, Input: p.Args})
		case *genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: p.Name, Input: p.Args})
		}
	}
	return out, nil
}

func blockedCategory(ratings []*genai.SafetyRating) string {
	for _, r := range ratings {
		if r != nil && r.Blocked {
			return fmt.Sprint(r.Category)
		}
	}
	return "unknown"
}

// SafetyFilterError reports a prompt or reply blocked by Gemini's safety
// filters.
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//		log.Printf("blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the harm category that triggered the block.
func (e *SafetyFilterError) Category() string { return e.category }

// Reason returns the block or finish reason reported by the API.
func (e *SafetyFilterError) Reason() string { return e.reason }
