package toolrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/agentcore-ai/runtime/internal/eventstore"
	"github.com/agentcore-ai/runtime/internal/permission"
	"github.com/agentcore-ai/runtime/internal/tool"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// Runner executes tool calls on behalf of an agent turn.
type Runner struct {
	registry    *tool.Registry
	permissions *permission.Checker
	doomLoop    *permission.DoomLoopDetector
	events      *eventstore.EventStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex // sessionID -> serial critical section
}

// New creates a Runner backed by the given tool registry, permission
// checker, and event store. events may be nil, in which case tool progress
// is not published (used by tests that only care about execution outcome).
func New(registry *tool.Registry, permissions *permission.Checker, events *eventstore.EventStore) *Runner {
	return &Runner{
		registry:    registry,
		permissions: permissions,
		doomLoop:    permission.NewDoomLoopDetector(),
		events:      events,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Request bundles everything the Runner needs to execute one ToolCallPart.
type Request struct {
	SessionID   string
	BranchID    string
	MessageID   string
	Agent       string
	WorkDir     string
	Call        *types.ToolCallPart
	Permissions permission.AgentPermissions
}

// Execute runs a single tool call, gating it on permissions and doom-loop
// detection, and returns the ToolResultPart to append to the branch (§4.C
// step 4: the result is always produced, success or failure, never a bare
// Go error bubbling past this boundary).
func (r *Runner) Execute(ctx context.Context, req Request) *types.ToolResultPart {
	call := req.Call

	if r.events != nil {
		_, _ = r.events.Publish(ctx, req.SessionID, req.BranchID, types.ToolCallStarted{
			ToolCallID: call.ToolCallID,
			ToolName:   call.ToolName,
			Input:      call.Input,
		})
	}

	result := r.execute(ctx, req)

	if r.events != nil {
		_, _ = r.events.Publish(ctx, req.SessionID, req.BranchID, types.ToolCallCompleted{
			ToolCallID: call.ToolCallID,
			Summary:    result.Output.Type,
			Output:     result.Output.Value,
			IsError:    result.Output.Type == "error-json",
		})
	}

	return result
}

func (r *Runner) execute(ctx context.Context, req Request) *types.ToolResultPart {
	call := req.Call

	t, ok := r.registry.Get(call.ToolName)
	if !ok {
		return errorResult(call, fmt.Sprintf("tool not found: %s", call.ToolName))
	}

	if err := r.checkPermission(ctx, req, t); err != nil {
		return errorResult(call, err.Error())
	}

	if r.doomLoop.Check(req.SessionID, call.ToolName, call.Input) {
		doomReq := permission.Request{
			Type:      permission.PermDoomLoop,
			SessionID: req.SessionID,
			BranchID:  req.BranchID,
			MessageID: req.MessageID,
			CallID:    call.ToolCallID,
			Title:     fmt.Sprintf("%s has been called repeatedly with the same input. Continue?", call.ToolName),
		}
		if err := r.permissions.Check(ctx, doomReq, req.Permissions.DoomLoop); err != nil {
			return errorResult(call, err.Error())
		}
		r.doomLoop.Reset(req.SessionID)
	}

	inputJSON, err := json.Marshal(call.Input)
	if err != nil {
		return errorResult(call, fmt.Sprintf("failed to marshal input: %v", err))
	}

	abortCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(abortCh)
	}()

	toolCtx := &tool.Context{
		SessionID: req.SessionID,
		MessageID: req.MessageID,
		CallID:    call.ToolCallID,
		Agent:     req.Agent,
		WorkDir:   req.WorkDir,
		AbortCh:   abortCh,
	}

	run := func() (*tool.Result, error) {
		if t.Concurrency() == tool.Serial {
			lock := r.lockFor(req.SessionID)
			lock.Lock()
			defer lock.Unlock()
		}
		return t.Execute(ctx, inputJSON, toolCtx)
	}

	out, err := run()
	if err != nil {
		return errorResult(call, err.Error())
	}

	return &types.ToolResultPart{
		ID:         types.NewPartID(),
		Type:       "tool_result",
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Output: types.ToolResultOutput{
			Type:  "json",
			Value: toolResultValue(out),
		},
	}
}

// checkPermission maps a tool name to the permission type/action the agent
// configured for it, then asks the checker to gate the call. Bash is
// deliberately excluded here: BashTool carries its own permission.Checker
// (wired via WithPermissionChecker) and resolves per-command patterns
// itself via MatchBashPermission, since a single bash invocation can chain
// several distinct commands each needing its own pattern match.
func (r *Runner) checkPermission(ctx context.Context, req Request, t tool.Tool) error {
	if r.permissions == nil {
		return nil
	}

	var permType permission.PermissionType
	var action permission.PermissionAction
	var pattern []string

	switch strings.ToLower(req.Call.ToolName) {
	case "write", "edit":
		permType = permission.PermEdit
		if path, ok := req.Call.Input["filePath"].(string); ok {
			pattern = []string{path}
		}
		action = req.Permissions.Edit

	case "webfetch":
		permType = permission.PermWebFetch
		action = req.Permissions.WebFetch

	default:
		return nil
	}

	if action == "" {
		action = permission.ActionAsk
	}

	permReq := permission.Request{
		Type:      permType,
		Pattern:   pattern,
		SessionID: req.SessionID,
		BranchID:  req.BranchID,
		MessageID: req.MessageID,
		CallID:    req.Call.ToolCallID,
		Title:     fmt.Sprintf("Allow %s?", req.Call.ToolName),
	}

	return r.permissions.Check(ctx, permReq, action)
}

func (r *Runner) lockFor(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

// ClearSession drops per-session permission memory and doom-loop history,
// called when a session is deleted.
func (r *Runner) ClearSession(sessionID string) {
	if r.permissions != nil {
		r.permissions.ClearSession(sessionID)
	}
	r.doomLoop.Clear(sessionID)

	r.mu.Lock()
	delete(r.locks, sessionID)
	r.mu.Unlock()
}

func errorResult(call *types.ToolCallPart, msg string) *types.ToolResultPart {
	return &types.ToolResultPart{
		ID:         types.NewPartID(),
		Type:       "tool_result",
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Output: types.ToolResultOutput{
			Type:  "error-json",
			Value: msg,
		},
	}
}

// toolResultValue normalizes a tool.Result into the JSON value carried by a
// successful ToolResultPart.
func toolResultValue(out *tool.Result) any {
	value := map[string]any{
		"title":  out.Title,
		"output": out.Output,
	}
	if len(out.Metadata) > 0 {
		value["metadata"] = out.Metadata
	}
	if len(out.Attachments) > 0 {
		value["attachments"] = out.Attachments
	}
	return value
}
