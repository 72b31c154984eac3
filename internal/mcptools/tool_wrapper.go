package mcptools

import (
	"context"
	"encoding/json"

	"github.com/agentcore-ai/runtime/internal/tool"
)

// toolWrapper adapts one MCP PrefixedTool to the runtime's tool.Tool
// interface, grounded on the teacher's MCPToolWrapper. MCP tools are
// registered conservatively serial: the runtime has no visibility into an
// external server's own side-effect profile, so they can't be assumed safe
// to run alongside other tool calls from the same turn.
type toolWrapper struct {
	t      PrefixedTool
	client *Client
}

func (w *toolWrapper) ID() string          { return w.t.PrefixedName }
func (w *toolWrapper) Description() string { return w.t.description }
func (w *toolWrapper) Parameters() json.RawMessage {
	if w.t.inputSchema == nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return w.t.inputSchema
}
func (w *toolWrapper) Concurrency() tool.ConcurrencyClass { return tool.Serial }

func (w *toolWrapper) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	output, err := w.client.Execute(ctx, w.t, input)
	if err != nil {
		return nil, err
	}
	if toolCtx != nil {
		toolCtx.SetMetadata(w.t.PrefixedName, map[string]any{
			"type": "mcp",
			"tool": w.t.PrefixedName,
		})
	}
	return &tool.Result{Title: w.t.PrefixedName, Output: output}, nil
}

// Register adds every tool client currently exposes to registry, so an
// MCP server's tools are dispatched through the same toolrunner.Runner as
// every built-in tool.
func Register(registry *tool.Registry, client *Client) {
	if registry == nil || client == nil {
		return
	}
	for _, t := range client.Tools() {
		registry.Register(&toolWrapper{t: t, client: client})
	}
}
