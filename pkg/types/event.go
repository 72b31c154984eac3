package types

// Event is a discriminated fact published about a session (§3). Every
// concrete event type below implements Event via its Tag() method; Tag
// values are part of the wire contract per §9 ("tagged unions... keep as
// discriminated sums").
type Event interface {
	Tag() string
}

// EventEnvelope wraps a published Event with a strictly-increasing
// per-session id and scope. Invariant: id is strictly increasing within a
// session; ordering across sessions is unspecified (§3).
type EventEnvelope struct {
	ID          uint64 `json:"id"`
	SessionID   string `json:"sessionID"`
	BranchID    string `json:"branchID,omitempty"`
	Event       Event  `json:"event"`
	PublishedAt int64  `json:"publishedAt"`
}

// --- Transcript ---

type MessageReceived struct {
	Role string `json:"role"`
}

func (MessageReceived) Tag() string { return "MessageReceived" }

// --- Streaming ---

type StreamStarted struct{}

func (StreamStarted) Tag() string { return "StreamStarted" }

type StreamChunk struct {
	Chunk string `json:"chunk"`
}

func (StreamChunk) Tag() string { return "StreamChunk" }

type StreamEnded struct {
	Usage       *TokenUsage `json:"usage,omitempty"`
	Interrupted bool        `json:"interrupted,omitempty"`
}

func (StreamEnded) Tag() string { return "StreamEnded" }

type ErrorOccurred struct {
	Error string `json:"error"`
}

func (ErrorOccurred) Tag() string { return "ErrorOccurred" }

// --- Tools ---

type ToolCallStarted struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Input      map[string]any `json:"input"`
}

func (ToolCallStarted) Tag() string { return "ToolCallStarted" }

type ToolCallCompleted struct {
	ToolCallID string `json:"toolCallId"`
	Summary    string `json:"summary,omitempty"`
	Output     any    `json:"output"`
	IsError    bool   `json:"isError"`
}

func (ToolCallCompleted) Tag() string { return "ToolCallCompleted" }

// --- Steering ---

type AgentSwitched struct {
	FromAgent string `json:"fromAgent"`
	ToAgent   string `json:"toAgent"`
}

func (AgentSwitched) Tag() string { return "AgentSwitched" }

type BranchSwitched struct {
	ToBranchID string `json:"toBranchId"`
}

func (BranchSwitched) Tag() string { return "BranchSwitched" }

type SessionNameUpdated struct {
	Name string `json:"name"`
}

func (SessionNameUpdated) Tag() string { return "SessionNameUpdated" }

type PlanModeEntered struct{}

func (PlanModeEntered) Tag() string { return "PlanModeEntered" }

type PlanModeExited struct{}

func (PlanModeExited) Tag() string { return "PlanModeExited" }

// --- Prompts ---

type QuestionsAsked struct {
	RequestID string   `json:"requestId"`
	Questions []string `json:"questions"`
}

func (QuestionsAsked) Tag() string { return "QuestionsAsked" }

type PermissionRequested struct {
	RequestID string         `json:"requestId"`
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input"`
}

func (PermissionRequested) Tag() string { return "PermissionRequested" }

type PlanPresented struct {
	RequestID string `json:"requestId"`
	Plan      string `json:"plan"`
}

func (PlanPresented) Tag() string { return "PlanPresented" }

// --- Subagents ---

type SubagentSpawned struct {
	Agent  string `json:"agent"`
	Prompt string `json:"prompt"`
}

func (SubagentSpawned) Tag() string { return "SubagentSpawned" }

// SubagentResult is the tagged success|error outcome of a subagent run.
type SubagentResult struct {
	Tag     string `json:"_tag"` // "success" | "error"
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SubagentCompleted struct {
	Result SubagentResult `json:"result"`
}

func (SubagentCompleted) Tag() string { return "SubagentCompleted" }

// --- Machine inspection (testing hook) ---

type MachineInspected struct {
	State string `json:"state"`
}

func (MachineInspected) Tag() string { return "MachineInspected" }

type MachineTaskSucceeded struct {
	Task string `json:"task"`
}

func (MachineTaskSucceeded) Tag() string { return "MachineTaskSucceeded" }
