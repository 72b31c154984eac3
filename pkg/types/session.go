// Package types provides the core data types for the agent runtime: the
// Session/Branch/Message/Part/Event/Todo model described by the runtime's
// component design.
package types

// Session is the top-level conversation container. Exactly one branch is
// active at any time (Session.ActiveBranchID); branches themselves form a
// forest rooted at the session (see Branch).
type Session struct {
	ID             string        `json:"id"`
	ParentSessionID *string      `json:"parentSessionID,omitempty"` // set for subagent sessions
	Name           string        `json:"name,omitempty"`
	Directory      string        `json:"directory"`
	Bypass         bool          `json:"bypass"`
	ActiveBranchID string        `json:"activeBranchID"`
	Share          *SessionShare `json:"share,omitempty"`
	Time           Timestamps    `json:"time"`
}

// SessionShare records a published share URL. Supplements the distilled
// spec's Session record with the teacher's share/unshare lifecycle.
type SessionShare struct {
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// Branch is a linear ordered sequence of messages rooted at a session.
// Branches form a forest per session: ParentBranchID/ParentMessageID record
// the fork point when a branch was created via forkBranch.
type Branch struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"sessionID"`
	ParentBranchID *string     `json:"parentBranchID,omitempty"`
	ParentMessageID *string    `json:"parentMessageID,omitempty"`
	Name           string      `json:"name,omitempty"`
	Model          *ModelRef   `json:"model,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	Revert         *BranchRevert `json:"revert,omitempty"`
	Time           Timestamps  `json:"time"`
}

// BranchRevert supplements §4.A with the teacher's revert/unrevert marker:
// hides the suffix of a branch after messageID without deleting it.
type BranchRevert struct {
	MessageID string `json:"messageID"`
	Snapshot  string `json:"snapshot,omitempty"`
	Diff      string `json:"diff,omitempty"`
}

// Timestamps is the shared created/updated pair used by Session, Branch,
// and Message, matching the teacher's SessionTime/MessageTime convention.
type Timestamps struct {
	Created int64  `json:"created"`
	Updated int64  `json:"updated"`
}

// BranchTreeNode is the response shape for getBranchTree: the branch forest
// annotated with per-node message counts.
type BranchTreeNode struct {
	Branch       Branch           `json:"branch"`
	MessageCount int              `json:"messageCount"`
	Children     []BranchTreeNode `json:"children,omitempty"`
}

// ModelRef references a specific model from a provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// SessionState is the materialised snapshot a subscriber needs to resume,
// per §3: produced on demand from Storage plus the actor's live status.
type SessionState struct {
	SessionID    string    `json:"sessionID"`
	BranchID     string    `json:"branchID"`
	Messages     []Message `json:"messages"`
	LastEventID  uint64    `json:"lastEventID"`
	IsStreaming  bool      `json:"isStreaming"`
	Agent        string    `json:"agent"`
	Model        *ModelRef `json:"model,omitempty"`
	Bypass       bool      `json:"bypass"`
}
