// Package mcptools wires Model Context Protocol servers in as an
// additional Tool registry source (DOMAIN STACK), grounded on the
// teacher's internal/mcp package's use of the official MCP Go SDK.
// Resources and prompts are out of scope here: the runtime's Tool
// collaborator (§6) only needs tool listings, not MCP's broader surface.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentcore-ai/runtime/pkg/types"
)

// Client manages a set of MCP server connections and exposes their tools
// as a flat, server-name-prefixed list.
type Client struct {
	mu        sync.RWMutex
	servers   map[string]*serverConn
	sdkClient *sdkmcp.Client
}

type serverConn struct {
	name    string
	session *sdkmcp.ClientSession
	tools   []mcpTool
	failed  error
}

type mcpTool struct {
	name        string
	description string
	inputSchema json.RawMessage
}

// NewClient constructs an MCP client identifying itself to servers as the
// agent runtime core.
func NewClient() *Client {
	return &Client{
		servers: make(map[string]*serverConn),
		sdkClient: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    "agentcore-runtime",
			Version: "0.1.0",
		}, nil),
	}
}

// AddServer connects to one configured MCP server. A connection failure is
// recorded against the server name and also returned for the caller to
// log; a failed server is left out of Tools() and never blocks the others
// (mirrors the teacher's non-fatal per-server connect behavior in runServe).
func (c *Client) AddServer(ctx context.Context, name string, cfg types.MCPConfig) error {
	if cfg.Enabled != nil && !*cfg.Enabled {
		return nil
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, err := buildTransport(cfg, timeout)
	if err != nil {
		c.recordFailure(name, err)
		return err
	}

	session, err := c.sdkClient.Connect(connectCtx, transport, nil)
	if err != nil {
		err = fmt.Errorf("connect mcp server %s: %w", name, err)
		c.recordFailure(name, err)
		return err
	}

	conn := &serverConn{name: name, session: session}
	if result, err := session.ListTools(connectCtx, nil); err == nil {
		conn.tools = make([]mcpTool, len(result.Tools))
		for i, t := range result.Tools {
			var schema json.RawMessage
			if t.InputSchema != nil {
				schema, _ = json.Marshal(t.InputSchema)
			}
			conn.tools[i] = mcpTool{name: t.Name, description: t.Description, inputSchema: schema}
		}
	}

	c.mu.Lock()
	c.servers[name] = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) recordFailure(name string, err error) {
	c.mu.Lock()
	c.servers[name] = &serverConn{name: name, failed: err}
	c.mu.Unlock()
}

func buildTransport(cfg types.MCPConfig, timeout time.Duration) (sdkmcp.Transport, error) {
	switch cfg.Type {
	case "remote":
		if cfg.URL == "" {
			return nil, fmt.Errorf("remote mcp server missing url")
		}
		return &sdkmcp.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: &http.Client{Timeout: timeout},
		}, nil
	case "local", "stdio", "":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("local mcp server missing command")
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		cmd.Env = os.Environ()
		for k, v := range cfg.Environment {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		return &sdkmcp.CommandTransport{Command: cmd}, nil
	default:
		return nil, fmt.Errorf("unknown mcp transport type: %s", cfg.Type)
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}

// Tools returns every tool exposed by every connected server, with names
// prefixed by their owning server so two servers can't collide.
func (c *Client) Tools() []PrefixedTool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []PrefixedTool
	for name, conn := range c.servers {
		if conn.failed != nil {
			continue
		}
		for _, t := range conn.tools {
			out = append(out, PrefixedTool{
				PrefixedName: sanitize(name) + "_" + sanitize(t.name),
				serverName:   name,
				originalName: t.name,
				description:  t.description,
				inputSchema:  t.inputSchema,
			})
		}
	}
	return out
}

// PrefixedTool is one MCP tool listing, addressable by its server-prefixed
// name from the runtime's own Tool registry.
type PrefixedTool struct {
	PrefixedName string
	serverName   string
	originalName string
	description  string
	inputSchema  json.RawMessage
}

// Execute invokes t on its owning server, concatenating any text content
// blocks in the response the way the teacher's ExecuteTool does.
func (c *Client) Execute(ctx context.Context, t PrefixedTool, args json.RawMessage) (string, error) {
	c.mu.RLock()
	conn, ok := c.servers[t.serverName]
	c.mu.RUnlock()
	if !ok || conn.session == nil {
		return "", fmt.Errorf("mcp server not connected: %s", t.serverName)
	}

	var argsMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argsMap); err != nil {
			return "", fmt.Errorf("parse mcp tool arguments: %w", err)
		}
	}

	result, err := conn.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      t.originalName,
		Arguments: argsMap,
	})
	if err != nil {
		return "", err
	}
	if result.IsError {
		for _, content := range result.Content {
			if text, ok := content.(*sdkmcp.TextContent); ok {
				return "", fmt.Errorf("mcp tool error: %s", text.Text)
			}
		}
		return "", fmt.Errorf("mcp tool %s failed", t.PrefixedName)
	}

	var out strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			out.WriteString(text.Text)
		}
	}
	return out.String(), nil
}

// Close disconnects every connected server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, conn := range c.servers {
		if conn.session == nil {
			continue
		}
		if err := conn.session.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
