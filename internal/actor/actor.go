package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/agentcore-ai/runtime/internal/agent"
	"github.com/agentcore-ai/runtime/internal/eventstore"
	"github.com/agentcore-ai/runtime/internal/permission"
	"github.com/agentcore-ai/runtime/internal/provider"
	"github.com/agentcore-ai/runtime/internal/storage"
	"github.com/agentcore-ai/runtime/internal/tool"
	"github.com/agentcore-ai/runtime/internal/toolrunner"
	"github.com/agentcore-ai/runtime/pkg/types"
)

const (
	// MaxSteps bounds one turn's provider/tool round-trips (§4.D).
	MaxSteps = 50
	// MaxRetries caps retryable provider-stream failures (§4.D guideline: 3).
	MaxRetries = 3
	// RetryInitialInterval is the first backoff delay.
	RetryInitialInterval = time.Second
	// RetryMaxInterval caps the backoff delay.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime bounds total time spent retrying one stream open.
	RetryMaxElapsedTime = 2 * time.Minute
)

// newRetryBackoff mirrors the teacher's cenkalti/backoff configuration
// (internal/session/loop.go) with jitter disabled, so the n-th delay is
// min(RetryMaxInterval, RetryInitialInterval*2^n).
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// isRetryable classifies a provider stream-open error per §4.D: HTTP 429,
// 5xx (500-599), and rate-limit/overload/timeout substrings are retried;
// everything else (auth, schema) fails the turn immediately.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"429", "rate limit", "rate_limit", "overload", "timeout"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	for code := 500; code <= 599; code++ {
		if strings.Contains(msg, strconv.Itoa(code)) {
			return true
		}
	}
	return false
}

// Deps bundles the actor's collaborators, built once by cmd/agentcored and
// shared across every AgentActor instance the AgentLoop creates.
type Deps struct {
	Storage      *storage.Storage
	Events       *eventstore.EventStore
	Providers    *provider.Registry
	Agents       *agent.Registry
	ToolRegistry *tool.Registry
	Tools        *toolrunner.Runner
	Compaction   CompactionConfig
	Permissions  *permission.Checker
}

// TurnRequest describes one user turn to run to quiescence (§4.D).
type TurnRequest struct {
	Session  *types.Session
	Branch   *types.Branch
	AgentRef string
	Content  string
	Model    *types.ModelRef
	Bypass   bool
}

// AgentActor executes one user turn on one (session, branch) to
// quiescence: stream the provider, emit deltas, dispatch tool calls, loop
// until a terminal stop reason, grounded on the teacher's Processor.runLoop
// (internal/session/loop.go) and processStream (internal/session/stream.go),
// generalized from the teacher's single global event bus + inline tool
// execution to eventstore.EventStore + toolrunner.Runner.
type AgentActor struct {
	deps Deps
}

// NewActor constructs an AgentActor sharing deps with every other actor the
// AgentLoop manages.
func NewActor(deps Deps) *AgentActor {
	return &AgentActor{deps: deps}
}

// pendingPrompt is fulfilled by AgentLoop.respondQuestions/respondPlan and
// observed by RunTurn at the suspension point named in its Kind.
type pendingPrompt struct {
	Kind    string // "questions" | "plan" | "permission"
	Answers [][]string
	Decision string
	Reason   string
}

// turnControl is the steering surface the AgentLoop feeds to a running
// turn: cancellation, interjected messages, and mid-turn agent/model/mode
// switches (§4.E).
type turnControl struct {
	ctx         context.Context
	interject   <-chan string
	switchAgent <-chan string
	switchModel <-chan types.ModelRef
	switchMode  <-chan string
	prompts     <-chan pendingPrompt
}

// RunTurn executes req to quiescence, returning only once the turn has
// reached a terminal stop reason, been cancelled, or failed. Provider,
// storage and tool failures after setup are persisted as the assistant
// message's MessageError, emitted as ErrorOccurred + StreamEnded per §7's
// turn-scoped-failure policy, and returned as a *types.AgentLoopError.
// When the turn cannot even be set up (unknown agent, provider or model,
// or the user message cannot be persisted) it returns a typed error
// without emitting those events.
func (a *AgentActor) RunTurn(ctx context.Context, req TurnRequest, ctl turnControl) error {
	sess, branch := req.Session, req.Branch

	ag, err := a.deps.Agents.Get(req.AgentRef)
	if err != nil {
		return &types.AgentLoopError{Message: fmt.Sprintf("unknown agent %q", req.AgentRef), Cause: err}
	}

	providerID, modelID := a.resolveModel(branch, req.Model)
	prov, err := a.deps.Providers.Get(providerID)
	if err != nil {
		return &types.ProviderError{Model: modelID, Message: "provider not found", Cause: err}
	}
	model, err := a.deps.Providers.GetModel(providerID, modelID)
	if err != nil {
		return &types.ProviderError{Model: modelID, Message: "model not found", Cause: err}
	}

	userMsg := &types.Message{
		ID:        types.NewMessageID(),
		SessionID: sess.ID,
		BranchID:  branch.ID,
		Role:      "user",
		Parts:     []types.Part{&types.TextPart{ID: types.NewPartID(), Type: "text", Text: req.Content}},
		Time:      types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	if err := a.deps.Storage.CreateMessage(ctx, userMsg); err != nil {
		return &types.StorageError{Message: "persist user message", Cause: err}
	}
	a.publish(ctx, sess.ID, branch.ID, types.MessageReceived{Role: "user"})

	currentAgent := ag
	retryBackoff := newRetryBackoff(ctx)
	step := 0

	for {
		select {
		case <-ctl.ctx.Done():
			return a.finishCancelled(ctx, sess, branch)
		default:
		}

		select {
		case newAgentName := <-ctl.switchAgent:
			if next, err := a.deps.Agents.Get(newAgentName); err == nil {
				a.publish(ctx, sess.ID, branch.ID, types.AgentSwitched{FromAgent: currentAgent.Name, ToAgent: newAgentName})
				currentAgent = next
			}
		default:
		}
		select {
		case ref := <-ctl.switchModel:
			providerID, modelID = ref.ProviderID, ref.ModelID
			if p, err := a.deps.Providers.Get(providerID); err == nil {
				prov = p
			}
			if m, err := a.deps.Providers.GetModel(providerID, modelID); err == nil {
				model = m
			}
		default:
		}
		select {
		case mode := <-ctl.switchMode:
			if mode == "plan" {
				a.publish(ctx, sess.ID, branch.ID, types.PlanModeEntered{})
			} else {
				a.publish(ctx, sess.ID, branch.ID, types.PlanModeExited{})
			}
		default:
		}

		if step >= MaxSteps {
			return a.finishError(ctx, sess, branch, "max_steps", "maximum turn steps exceeded")
		}

		messages, err := a.deps.Storage.ListMessages(ctx, branch.ID)
		if err != nil {
			return a.finishError(ctx, sess, branch, "storage", err.Error())
		}

		promptMessages, err := compactForPrompt(ctx, a.deps.Providers, messages, a.deps.Compaction)
		if err != nil {
			return a.finishError(ctx, sess, branch, "compaction", err.Error())
		}

		sysPrompt := newSystemPromptBuilder(sess, branch, currentAgent, providerID, modelID).Build()
		einoMessages := append([]*schema.Message{{Role: schema.System, Content: sysPrompt}}, provider.ConvertToEinoMessages(promptMessages)...)

		toolInfos, err := a.visibleToolInfos(currentAgent)
		if err != nil {
			return a.finishError(ctx, sess, branch, "tooling", err.Error())
		}

		a.publish(ctx, sess.ID, branch.ID, types.StreamStarted{})

		stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
			Model:    model.ID,
			Messages: einoMessages,
			Tools:    toolInfos,
		})
		if err != nil {
			if isRetryable(err) {
				wait := retryBackoff.NextBackOff()
				if wait == backoff.Stop {
					return a.finishError(ctx, sess, branch, "provider", err.Error())
				}
				a.sleep(ctl.ctx, wait)
				continue
			}
			return a.finishError(ctx, sess, branch, "provider", err.Error())
		}

		outcome := a.consumeStream(ctx, ctl, sess, branch, stream)
		stream.Close()

		if outcome.err != nil {
			if isRetryable(outcome.err) {
				wait := retryBackoff.NextBackOff()
				if wait == backoff.Stop {
					return a.finishError(ctx, sess, branch, "provider", outcome.err.Error())
				}
				a.sleep(ctl.ctx, wait)
				continue
			}
			return a.finishError(ctx, sess, branch, "provider", outcome.err.Error())
		}
		if outcome.cancelled {
			return a.finishCancelledWithText(ctx, sess, branch, outcome.text)
		}
		retryBackoff.Reset()

		assistantMsg := a.buildAssistantMessage(sess, branch, currentAgent, providerID, modelID, outcome)
		if err := a.deps.Storage.CreateMessage(ctx, assistantMsg); err != nil {
			return a.finishError(ctx, sess, branch, "storage", err.Error())
		}
		a.publish(ctx, sess.ID, branch.ID, types.StreamEnded{Usage: assistantMsg.Tokens})

		switch outcome.finishReason {
		case "stop", "end_turn", "":
			return nil
		case "length", "max_tokens":
			return nil
		case "tool_calls", "tool_use":
			if err := a.runToolStep(ctx, sess, branch, currentAgent, assistantMsg.ID, outcome.toolCalls); err != nil {
				return a.finishError(ctx, sess, branch, "tool", err.Error())
			}
			step++
			if interjected := a.drainInterject(ctl); interjected != "" {
				a.injectUserMessage(ctx, sess, branch, interjected)
			}
			continue
		default:
			return nil
		}
	}
}

func (a *AgentActor) resolveModel(branch *types.Branch, override *types.ModelRef) (providerID, modelID string) {
	if override != nil && override.ProviderID != "" {
		return override.ProviderID, override.ModelID
	}
	if branch.Model != nil {
		return branch.Model.ProviderID, branch.Model.ModelID
	}
	return "anthropic", "claude-sonnet-4-20250514"
}

func (a *AgentActor) visibleToolInfos(ag *agent.Agent) ([]*schema.ToolInfo, error) {
	toolInfos, err := a.deps.ToolRegistry.ToolInfos()
	if err != nil {
		return nil, err
	}
	if ag == nil {
		return toolInfos, nil
	}
	filtered := make([]*schema.ToolInfo, 0, len(toolInfos))
	for _, info := range toolInfos {
		if ag.ToolEnabled(info.Name) {
			filtered = append(filtered, info)
		}
	}
	return filtered, nil
}

func (a *AgentActor) drainInterject(ctl turnControl) string {
	select {
	case msg := <-ctl.interject:
		return msg
	default:
		return ""
	}
}

func (a *AgentActor) injectUserMessage(ctx context.Context, sess *types.Session, branch *types.Branch, content string) {
	msg := &types.Message{
		ID:        types.NewMessageID(),
		SessionID: sess.ID,
		BranchID:  branch.ID,
		Role:      "user",
		Kind:      "interjection",
		Parts:     []types.Part{&types.TextPart{ID: types.NewPartID(), Type: "text", Text: content}},
		Time:      types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	_ = a.deps.Storage.CreateMessage(ctx, msg)
}

func (a *AgentActor) publish(ctx context.Context, sessionID, branchID string, ev types.Event) {
	if a.deps.Events == nil {
		return
	}
	_, _ = a.deps.Events.Publish(ctx, sessionID, branchID, ev)
}

func (a *AgentActor) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// streamOutcome accumulates one provider stream's deltas into the shape
// needed to build the assistant message, mirroring the teacher's
// processStream (internal/session/stream.go) generalized to the four-part
// taxonomy instead of the teacher's text/reasoning/tool split.
type streamOutcome struct {
	text         strings.Builder
	toolCalls    []*types.ToolCallPart
	finishReason string
	usage        *types.TokenUsage
	err          error
	cancelled    bool
}

func (a *AgentActor) consumeStream(ctx context.Context, ctl turnControl, sess *types.Session, branch *types.Branch, stream *provider.CompletionStream) streamOutcome {
	var out streamOutcome
	accumulated := map[int]*types.ToolCallPart{}
	argBuf := map[int]string{}

	for {
		select {
		case <-ctl.ctx.Done():
			out.cancelled = true
			return out
		default:
		}

		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.err = err
			return out
		}

		if msg.Content != "" {
			out.text.WriteString(msg.Content)
			a.publish(ctx, sess.ID, branch.ID, types.StreamChunk{Chunk: msg.Content})
		}

		for _, tc := range msg.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			part, ok := accumulated[idx]
			if !ok {
				part = &types.ToolCallPart{
					ID:         types.NewPartID(),
					Type:       "tool_call",
					ToolCallID: tc.ID,
					ToolName:   tc.Function.Name,
				}
				accumulated[idx] = part
			}
			if tc.ID != "" {
				part.ToolCallID = tc.ID
			}
			if tc.Function.Name != "" {
				part.ToolName = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				argBuf[idx] += tc.Function.Arguments
				var input map[string]any
				if json.Unmarshal([]byte(argBuf[idx]), &input) == nil {
					part.Input = input
				}
			}
		}

		if msg.ResponseMeta != nil {
			if msg.ResponseMeta.Usage != nil {
				out.usage = &types.TokenUsage{
					Input:  msg.ResponseMeta.Usage.PromptTokens,
					Output: msg.ResponseMeta.Usage.CompletionTokens,
				}
			}
			if msg.ResponseMeta.FinishReason != "" {
				out.finishReason = msg.ResponseMeta.FinishReason
			}
		}
	}

	for i := 0; i < len(accumulated); i++ {
		if part, ok := accumulated[i]; ok {
			out.toolCalls = append(out.toolCalls, part)
		}
	}
	return out
}

func (a *AgentActor) buildAssistantMessage(sess *types.Session, branch *types.Branch, ag *agent.Agent, providerID, modelID string, outcome streamOutcome) *types.Message {
	parts := make([]types.Part, 0, 1+len(outcome.toolCalls))
	if text := outcome.text.String(); text != "" {
		parts = append(parts, &types.TextPart{ID: types.NewPartID(), Type: "text", Text: text})
	}
	for _, tc := range outcome.toolCalls {
		parts = append(parts, tc)
	}

	agentName := ""
	if ag != nil {
		agentName = ag.Name
	}

	finish := outcome.finishReason
	if finish == "" {
		finish = "stop"
	}

	return &types.Message{
		ID:        types.NewMessageID(),
		SessionID: sess.ID,
		BranchID:  branch.ID,
		Role:      "assistant",
		Parts:     parts,
		Agent:     agentName,
		Model:     &types.ModelRef{ProviderID: providerID, ModelID: modelID},
		Finish:    finish,
		Tokens:    outcome.usage,
		Time:      types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
}

// runToolStep dispatches every accumulated tool call through the
// toolrunner and persists one tool-role message carrying all the
// ToolResultParts for this step (§4.D step f).
func (a *AgentActor) runToolStep(ctx context.Context, sess *types.Session, branch *types.Branch, ag *agent.Agent, assistantMsgID string, calls []*types.ToolCallPart) error {
	if len(calls) == 0 {
		return nil
	}

	var perms permission.AgentPermissions
	if ag != nil {
		perms = permission.AgentPermissions{
			Edit:        ag.Permission.Edit,
			WebFetch:    ag.Permission.WebFetch,
			ExternalDir: ag.Permission.ExternalDir,
			DoomLoop:    ag.Permission.DoomLoop,
			Bash:        ag.Permission.Bash,
		}
	}

	results := make([]types.Part, 0, len(calls))
	for _, call := range calls {
		req := toolrunner.Request{
			SessionID:   sess.ID,
			BranchID:    branch.ID,
			MessageID:   assistantMsgID,
			Agent:       agentNameOf(ag),
			WorkDir:     sess.Directory,
			Call:        call,
			Permissions: perms,
		}
		result := a.deps.Tools.Execute(ctx, req)
		results = append(results, result)
	}

	toolMsg := &types.Message{
		ID:        types.NewMessageID(),
		SessionID: sess.ID,
		BranchID:  branch.ID,
		Role:      "tool",
		Parts:     results,
		Time:      types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	if err := a.deps.Storage.CreateMessage(ctx, toolMsg); err != nil {
		return &types.StorageError{Message: "persist tool results", Cause: err}
	}
	return nil
}

func agentNameOf(ag *agent.Agent) string {
	if ag == nil {
		return ""
	}
	return ag.Name
}

// finishError persists a turn-scoped failure on a synthetic assistant
// message and emits ErrorOccurred + StreamEnded per §7.
func (a *AgentActor) finishError(ctx context.Context, sess *types.Session, branch *types.Branch, kind, message string) error {
	msg := &types.Message{
		ID:        types.NewMessageID(),
		SessionID: sess.ID,
		BranchID:  branch.ID,
		Role:      "assistant",
		Finish:    "error",
		Error:     &types.MessageError{Type: kind, Message: message},
		Time:      types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	_ = a.deps.Storage.CreateMessage(ctx, msg)
	a.publish(ctx, sess.ID, branch.ID, types.ErrorOccurred{Error: message})
	a.publish(ctx, sess.ID, branch.ID, types.StreamEnded{})
	return &types.AgentLoopError{Message: message}
}

func (a *AgentActor) finishCancelled(ctx context.Context, sess *types.Session, branch *types.Branch) error {
	return a.finishCancelledWithText(ctx, sess, branch, "")
}

// finishCancelledWithText persists whatever assistant text was buffered
// when Cancel/Interrupt landed, marked interrupted, and never runs further
// tool calls (§4.D step 4, §5 cancellation semantics).
func (a *AgentActor) finishCancelledWithText(ctx context.Context, sess *types.Session, branch *types.Branch, text string) error {
	var parts []types.Part
	if text != "" {
		parts = []types.Part{&types.TextPart{ID: types.NewPartID(), Type: "text", Text: text}}
	}
	msg := &types.Message{
		ID:          types.NewMessageID(),
		SessionID:   sess.ID,
		BranchID:    branch.ID,
		Role:        "assistant",
		Parts:       parts,
		Finish:      "stop",
		Interrupted: true,
		Time:        types.Timestamps{Created: nowMillis(), Updated: nowMillis()},
	}
	_ = a.deps.Storage.CreateMessage(ctx, msg)
	a.publish(ctx, sess.ID, branch.ID, types.StreamEnded{Interrupted: true})
	return nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }
