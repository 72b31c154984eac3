package actor

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentcore-ai/runtime/internal/logging"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// SubmitMode controls how a new message interacts with an already-running
// turn on the same (session, branch) (§4.E run operation).
type SubmitMode string

const (
	// SubmitQueue waits for the current turn to reach quiescence, then runs
	// the new message as the next turn. Default.
	SubmitQueue SubmitMode = "queue"
	// SubmitInterject delivers the message into the currently running turn,
	// observed at its next tool-step boundary, instead of waiting.
	SubmitInterject SubmitMode = "interject"
)

// SteerCommand is the discriminated union accepted by AgentLoop.Steer,
// scoped to exactly one live actor by (SessionID, BranchID) (§4.E).
type SteerCommand struct {
	Tag       string // "cancel" | "interrupt" | "interject" | "switch_agent" | "switch_model" | "switch_mode"
	SessionID string
	BranchID  string
	Message   string
	Agent     string
	Model     types.ModelRef
	Mode      string
}

// handle is the live state the AgentLoop keeps for one (session, branch)
// that currently has, or just had, a turn running — the teacher has no
// analogue to this: internal/session/loop.go runs one processor goroutine
// per HTTP request with no registry and no steering beyond context
// cancellation.
type handle struct {
	sessionID string
	branchID  string

	cancel context.CancelFunc

	interject   chan string
	switchAgent chan string
	switchModel chan types.ModelRef
	switchMode  chan string
	prompts     chan pendingPrompt

	mu      sync.Mutex
	running bool
	queue   []queuedTurn

	// pending maps a requestId to the channel its eventual answer is
	// delivered on, for respondQuestions/respondPermission/respondPlan.
	pendingMu sync.Mutex
	pending   map[string]chan pendingPrompt
}

type queuedTurn struct {
	req TurnRequest
}

// Loop is the AgentLoop registry: it owns one handle per live
// (session, branch), schedules turns onto AgentActor, and routes steering
// and suspended-prompt responses to the correct actor without ever
// affecting another (§4.E scoping invariant).
type Loop struct {
	deps  Deps
	actor *AgentActor

	mu       sync.Mutex
	handles  map[string]*handle // key: sessionID + "/" + branchID
}

// NewLoop constructs the registry. deps are shared by every actor turn the
// loop schedules.
func NewLoop(deps Deps) *Loop {
	return &Loop{
		deps:    deps,
		actor:   NewActor(deps),
		handles: make(map[string]*handle),
	}
}

func handleKey(sessionID, branchID string) string {
	return sessionID + "/" + branchID
}

// Run submits a message to the (session, branch) named in req, per mode
// (§4.E run). If no turn is currently live there, one starts immediately
// regardless of mode.
func (l *Loop) Run(ctx context.Context, req TurnRequest, mode SubmitMode) error {
	key := handleKey(req.Session.ID, req.Branch.ID)

	l.mu.Lock()
	h, exists := l.handles[key]
	if !exists {
		h = l.newHandle(req.Session.ID, req.Branch.ID)
		l.handles[key] = h
	}
	l.mu.Unlock()

	h.mu.Lock()
	if h.running {
		defer h.mu.Unlock()
		switch mode {
		case SubmitInterject:
			select {
			case h.interject <- req.Content:
			default:
				// The one-slot interject buffer already holds an undelivered
				// interjection; queue this one as a follow-up turn so it is
				// never silently dropped.
				h.queue = append(h.queue, queuedTurn{req: req})
			}
		default:
			h.queue = append(h.queue, queuedTurn{req: req})
		}
		return nil
	}
	h.running = true
	h.mu.Unlock()

	go l.runAndDrain(req, h)
	return nil
}

func (l *Loop) newHandle(sessionID, branchID string) *handle {
	return &handle{
		sessionID:   sessionID,
		branchID:    branchID,
		interject:   make(chan string, 1),
		switchAgent: make(chan string, 1),
		switchModel: make(chan types.ModelRef, 1),
		switchMode:  make(chan string, 1),
		prompts:     make(chan pendingPrompt, 1),
		pending:     make(map[string]chan pendingPrompt),
	}
}

// runAndDrain runs req to quiescence, then pops and runs queued turns one
// at a time until the queue is empty, at which point the handle is
// retired. A panicking turn is contained here: logged, reported via
// ErrorOccurred, and does not take down the loop.
func (l *Loop) runAndDrain(req TurnRequest, h *handle) {
	for {
		l.runOneTurn(req, h)

		h.mu.Lock()
		if len(h.queue) == 0 {
			h.running = false
			h.mu.Unlock()
			l.mu.Lock()
			delete(l.handles, handleKey(h.sessionID, h.branchID))
			l.mu.Unlock()
			return
		}
		next := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()
		req = next.req
	}
}

func (l *Loop) runOneTurn(req TurnRequest, h *handle) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("sessionID", h.sessionID).Str("branchID", h.branchID).Msg("agent turn panicked")
			_, _ = l.deps.Events.Publish(context.Background(), h.sessionID, h.branchID, types.ErrorOccurred{Error: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	turnCtx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	defer cancel()

	ctl := turnControl{
		ctx:         turnCtx,
		interject:   h.interject,
		switchAgent: h.switchAgent,
		switchModel: h.switchModel,
		switchMode:  h.switchMode,
		prompts:     h.prompts,
	}

	if err := l.actor.RunTurn(turnCtx, req, ctl); err != nil {
		logging.Warn().Err(err).Str("sessionID", h.sessionID).Str("branchID", h.branchID).Msg("agent turn ended with error")
	}
}

// Steer dispatches cmd to the single actor named by (cmd.SessionID,
// cmd.BranchID); it is a no-op if that actor isn't currently running,
// matching the idempotent-after-end semantics §5 requires for Cancel and
// Interrupt.
func (l *Loop) Steer(cmd SteerCommand) error {
	l.mu.Lock()
	h, ok := l.handles[handleKey(cmd.SessionID, cmd.BranchID)]
	l.mu.Unlock()
	if !ok {
		return nil
	}

	switch cmd.Tag {
	case "cancel", "interrupt":
		h.mu.Lock()
		if cmd.Tag == "interrupt" {
			h.queue = nil
		}
		cancel := h.cancel
		h.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	case "interject":
		select {
		case h.interject <- cmd.Message:
		default:
		}
	case "switch_agent":
		select {
		case h.switchAgent <- cmd.Agent:
		default:
		}
	case "switch_model":
		select {
		case h.switchModel <- cmd.Model:
		default:
		}
	case "switch_mode":
		select {
		case h.switchMode <- cmd.Mode:
		default:
		}
	default:
		return &types.BadArgument{Module: "actor", Method: "Steer", Description: "unknown steer tag: " + cmd.Tag}
	}
	return nil
}

// Await registers a pending prompt slot for requestID, scoped to the actor
// running on (sessionID, branchID), and blocks until RespondQuestions /
// RespondPermission / RespondPlan fulfils it or ctx is cancelled. The
// AgentActor turn loop does not call it: RunTurn has no plan or question
// suspension point of its own.
func (l *Loop) Await(ctx context.Context, sessionID, branchID, requestID string) (pendingPrompt, error) {
	l.mu.Lock()
	h, ok := l.handles[handleKey(sessionID, branchID)]
	l.mu.Unlock()
	if !ok {
		return pendingPrompt{}, &types.AgentLoopError{Message: "no live actor for " + sessionID + "/" + branchID}
	}

	ch := make(chan pendingPrompt, 1)
	h.pendingMu.Lock()
	h.pending[requestID] = ch
	h.pendingMu.Unlock()

	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, requestID)
		h.pendingMu.Unlock()
	}()

	select {
	case answer := <-ch:
		return answer, nil
	case <-ctx.Done():
		return pendingPrompt{}, ctx.Err()
	}
}

// fulfil delivers answer to the pending slot named requestID on the actor
// for (sessionID, branchID), scoped so it can never affect another actor's
// pending prompts (§4.E scoping invariant).
func (l *Loop) fulfil(sessionID, branchID, requestID string, answer pendingPrompt) error {
	l.mu.Lock()
	h, ok := l.handles[handleKey(sessionID, branchID)]
	l.mu.Unlock()
	if !ok {
		return &types.AgentLoopError{Message: "no live actor for " + sessionID + "/" + branchID}
	}

	h.pendingMu.Lock()
	ch, ok := h.pending[requestID]
	h.pendingMu.Unlock()
	if !ok {
		return &types.BadArgument{Module: "actor", Method: "fulfil", Description: "unknown or already-answered requestId: " + requestID}
	}

	ch <- answer
	return nil
}

// RespondQuestions fulfils a QuestionsAsked suspension with the client's
// answers.
func (l *Loop) RespondQuestions(sessionID, branchID, requestID string, answers [][]string) error {
	return l.fulfil(sessionID, branchID, requestID, pendingPrompt{Kind: "questions", Answers: answers})
}

// RespondPermission fulfils a PermissionRequested suspension, delegating to
// the shared permission.Checker since permission responses are addressed
// by requestId globally rather than scoped through a handle's pending map.
func (l *Loop) RespondPermission(requestID string, decision string) error {
	if l.deps.Permissions == nil {
		return &types.AgentLoopError{Message: "no permission checker configured"}
	}
	l.deps.Permissions.Respond(requestID, decision)
	return nil
}

// RespondPlan fulfils a PlanPresented suspension with the client's
// confirm/reject decision.
func (l *Loop) RespondPlan(sessionID, branchID, requestID, decision, reason string) error {
	return l.fulfil(sessionID, branchID, requestID, pendingPrompt{Kind: "plan", Decision: decision, Reason: reason})
}

// IsRunning reports whether a turn is currently live on (sessionID,
// branchID), used by getSessionState's isStreaming field.
func (l *Loop) IsRunning(sessionID, branchID string) bool {
	l.mu.Lock()
	h, ok := l.handles[handleKey(sessionID, branchID)]
	l.mu.Unlock()
	if !ok {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}
