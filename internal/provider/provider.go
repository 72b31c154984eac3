// Package provider provides LLM provider abstraction using Eino framework.
package provider

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/agentcore-ai/runtime/internal/jsonschema"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// Provider represents an LLM provider with Eino ChatModel.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the list of available models.
	Models() []types.Model

	// ChatModel returns the Eino ChatModel for this provider.
	ChatModel() model.ToolCallingChatModel

	// CreateCompletion creates a streaming completion.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	Tools       []*schema.ToolInfo `json:"tools,omitempty"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	TopP        float64           `json:"topP,omitempty"`
	StopWords   []string          `json:"stopWords,omitempty"`
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a new completion stream.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk from the stream.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// ToolInfo represents a tool definition for the LLM.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ConvertToEinoTools converts internal tool definitions to Eino format.
func ConvertToEinoTools(tools []ToolInfo) []*schema.ToolInfo {
	result := make([]*schema.ToolInfo, len(tools))
	for i, t := range tools {
		// Parse parameters from JSON schema
		var params map[string]*schema.ParameterInfo
		if len(t.Parameters) > 0 {
			params = jsonschema.ToParams(t.Parameters)
		}

		result[i] = &schema.ToolInfo{
			Name: t.Name,
			Desc: t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		}
	}
	return result
}

// ConvertFromEinoMessage converts an Eino message into the assistant
// Message shell for a turn; callers attach Parts (text/tool_call) separately
// as the stream is consumed.
func ConvertFromEinoMessage(msg *schema.Message, sessionID, branchID string) *types.Message {
	role := "assistant"
	switch msg.Role {
	case schema.User:
		role = "user"
	case schema.System:
		role = "system"
	case schema.Tool:
		role = "tool"
	}

	return &types.Message{
		SessionID: sessionID,
		BranchID:  branchID,
		Role:      role,
	}
}

// ConvertToEinoMessages converts branch messages (with their already-loaded
// Parts) into Eino's chat message format. A ToolResultPart is rendered as
// its own schema.Tool-role message, matched to its call by ToolCallID,
// rather than folded into the assistant message the way the teacher's
// ToolPart (request+response in one) allowed.
func ConvertToEinoMessages(messages []*types.Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages))

	for _, msg := range messages {
		role := schema.Assistant
		switch msg.Role {
		case "user":
			role = schema.User
		case "system":
			role = schema.System
		case "tool":
			role = schema.Tool
		}

		content := ""
		var toolCalls []schema.ToolCall

		for _, part := range msg.Parts {
			switch p := part.(type) {
			case *types.TextPart:
				content += p.Text
			case *types.ToolCallPart:
				inputJSON, _ := json.Marshal(p.Input)
				toolCalls = append(toolCalls, schema.ToolCall{
					ID: p.ToolCallID,
					Function: schema.FunctionCall{
						Name:      p.ToolName,
						Arguments: string(inputJSON),
					},
				})
			case *types.ToolResultPart:
				outputJSON, _ := json.Marshal(p.Output.Value)
				result = append(result, &schema.Message{
					Role:       schema.Tool,
					Content:    string(outputJSON),
					ToolCallID: p.ToolCallID,
				})
			}
		}

		einoMsg := &schema.Message{
			Role:      role,
			Content:   content,
			ToolCalls: toolCalls,
		}

		result = append(result, einoMsg)
	}

	return result
}
