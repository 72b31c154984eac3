package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore-ai/runtime/internal/tool"
	"github.com/agentcore-ai/runtime/pkg/types"
)

const (
	// SubagentTimeout bounds one subagent's total turn time (§4.E guideline: 5min).
	SubagentTimeout = 5 * time.Minute
	// SubagentMaxRetries bounds retries on a transient (retryable) error.
	SubagentMaxRetries = 2
)

// SubagentRunner spawns and runs one-shot child turns on behalf of the Task
// tool, replacing the teacher's internal/executor/subagent.go
// SubagentExecutor: it creates a child session + root branch linked via
// ParentSessionID, runs a single AgentActor turn to quiescence under a
// timeout, and reports the transcript back to the calling tool instead of
// the teacher's session.Processor callback plumbing.
type SubagentRunner struct {
	deps  Deps
	actor *AgentActor

	mu          sync.Mutex
	directories map[string]string // sessionID -> project directory, populated by Track
}

// NewSubagentRunner constructs a runner sharing deps (and therefore
// storage/events/providers) with the primary AgentLoop.
func NewSubagentRunner(deps Deps) *SubagentRunner {
	return &SubagentRunner{deps: deps, actor: NewActor(deps), directories: make(map[string]string)}
}

// Track records the project directory a session lives under, so a later
// ExecuteSubtask call naming that session as its parent can resolve it
// without a directory-less storage scan. The server's createSession
// handler calls this for every new top-level session, and
// createChildSession calls it for every child session.
func (r *SubagentRunner) Track(sessionID, directory string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directories[sessionID] = directory
}

var _ tool.TaskExecutor = (*SubagentRunner)(nil)

// ExecuteSubtask implements tool.TaskExecutor: it is invoked synchronously
// from within a calling turn's tool dispatch, so it blocks until the child
// turn reaches quiescence or SubagentTimeout elapses.
func (r *SubagentRunner) ExecuteSubtask(ctx context.Context, parentSessionID, agentName, prompt string, opts tool.TaskOptions) (*tool.TaskResult, error) {
	parent, err := r.findParentSession(ctx, parentSessionID)
	if err != nil {
		return nil, &types.SystemError{Module: "actor", Method: "ExecuteSubtask", Reason: "parent session not found", PathOrDescriptor: parentSessionID}
	}

	child, branch, err := r.createChildSession(ctx, parent)
	if err != nil {
		return nil, &types.StorageError{Message: "create subagent session", Cause: err}
	}

	_, _ = r.deps.Events.Publish(ctx, parent.ID, "", types.SubagentSpawned{Agent: agentName, Prompt: prompt})

	var lastErr error
	runCtx, cancel := context.WithTimeout(ctx, SubagentTimeout)
	for attempt := 0; attempt <= SubagentMaxRetries; attempt++ {
		lastErr = r.runOnce(runCtx, child, branch, agentName, prompt, opts)
		if lastErr == nil || !isRetryable(lastErr) || runCtx.Err() != nil {
			break
		}
	}
	cancel()

	transcript, readErr := r.collectTranscript(ctx, branch.ID)
	if lastErr != nil {
		_, _ = r.deps.Events.Publish(ctx, parent.ID, "", types.SubagentCompleted{
			Result: types.SubagentResult{Tag: "error", Error: lastErr.Error()},
		})
		return &tool.TaskResult{
			SessionID: child.ID,
			Error:     lastErr.Error(),
		}, nil
	}
	if readErr != nil {
		transcript = ""
	}

	_, _ = r.deps.Events.Publish(ctx, parent.ID, "", types.SubagentCompleted{
		Result: types.SubagentResult{Tag: "success", Output: transcript},
	})

	return &tool.TaskResult{
		Output:    transcript,
		SessionID: child.ID,
		Metadata:  map[string]any{"branchID": branch.ID},
	}, nil
}

func (r *SubagentRunner) findParentSession(ctx context.Context, sessionID string) (*types.Session, error) {
	r.mu.Lock()
	directory, known := r.directories[sessionID]
	r.mu.Unlock()
	if !known {
		return nil, fmt.Errorf("session %s not tracked", sessionID)
	}

	sess, err := r.deps.Storage.GetSession(ctx, directory, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return sess, nil
}

func (r *SubagentRunner) createChildSession(ctx context.Context, parent *types.Session) (*types.Session, *types.Branch, error) {
	branchID := types.NewBranchID()
	child := &types.Session{
		ID:              types.NewSessionID(),
		ParentSessionID: &parent.ID,
		Directory:       parent.Directory,
		Bypass:          parent.Bypass,
		ActiveBranchID:  branchID,
		Time:            types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	if err := r.deps.Storage.CreateSession(ctx, child.Directory, child); err != nil {
		return nil, nil, err
	}
	r.Track(child.ID, child.Directory)

	branch := &types.Branch{
		ID:        branchID,
		SessionID: child.ID,
		Name:      "main",
		Time:      types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	if err := r.deps.Storage.CreateBranch(ctx, branch); err != nil {
		return nil, nil, err
	}
	return child, branch, nil
}

func (r *SubagentRunner) runOnce(ctx context.Context, sess *types.Session, branch *types.Branch, agentName, prompt string, opts tool.TaskOptions) error {
	var modelRef *types.ModelRef
	if opts.Model != "" {
		modelRef = &types.ModelRef{ModelID: opts.Model}
	}

	done := make(chan struct{})
	noopPrompts := make(chan pendingPrompt)
	noopStrings := make(chan string)
	noopModels := make(chan types.ModelRef)

	var runErr error
	go func() {
		defer close(done)
		runErr = r.actor.RunTurn(ctx, TurnRequest{
			Session:  sess,
			Branch:   branch,
			AgentRef: agentName,
			Content:  prompt,
			Model:    modelRef,
			Bypass:   sess.Bypass,
		}, turnControl{
			ctx:         ctx,
			interject:   noopStrings,
			switchAgent: noopStrings,
			switchModel: noopModels,
			switchMode:  noopStrings,
			prompts:     noopPrompts,
		})
	}()

	select {
	case <-done:
		return runErr
	case <-ctx.Done():
		<-done
		return &types.AgentLoopError{Message: "subagent timed out", Cause: ctx.Err()}
	}
}

// collectTranscript concatenates every assistant text part produced on the
// child branch into the single string the calling tool receives as output.
func (r *SubagentRunner) collectTranscript(ctx context.Context, branchID string) (string, error) {
	messages, err := r.deps.Storage.ListMessages(ctx, branchID)
	if err != nil {
		return "", err
	}

	var out string
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Parts {
			if t, ok := part.(*types.TextPart); ok {
				out += t.Text
			}
		}
	}
	return out, nil
}
