package actor

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/agentcore-ai/runtime/internal/agent"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// systemPromptBuilder assembles the system prompt for one turn, adapted
// from the teacher's SystemPrompt (internal/session/system.go) to work off
// an agent.Agent and a Session/Branch pair instead of the teacher's flat
// Session+inline Agent.
type systemPromptBuilder struct {
	session    *types.Session
	branch     *types.Branch
	agent      *agent.Agent
	providerID string
	modelID    string
}

func newSystemPromptBuilder(sess *types.Session, branch *types.Branch, ag *agent.Agent, providerID, modelID string) *systemPromptBuilder {
	return &systemPromptBuilder{session: sess, branch: branch, agent: ag, providerID: providerID, modelID: modelID}
}

func (s *systemPromptBuilder) Build() string {
	var parts []string

	if header := s.providerHeader(); header != "" {
		parts = append(parts, header)
	}
	if s.agent != nil && s.agent.Prompt != "" {
		parts = append(parts, s.agent.Prompt)
	}
	parts = append(parts, s.environmentContext())
	if rules := s.loadCustomRules(); rules != "" {
		parts = append(parts, rules)
	}

	return strings.Join(parts, "\n\n")
}

func (s *systemPromptBuilder) providerHeader() string {
	switch s.providerID {
	case "anthropic":
		return `You are Claude, an AI assistant made by Anthropic. You are helpful, harmless, and honest.

IMPORTANT: You have access to tools that can read, write, and execute commands on the user's computer. Use them responsibly.`
	case "openai":
		return `You are a helpful AI assistant with access to tools for reading, writing, and executing commands.

Use tools responsibly and follow user instructions carefully.`
	default:
		return ""
	}
}

func (s *systemPromptBuilder) environmentContext() string {
	var b strings.Builder
	b.WriteString("## Environment\n")
	if s.session != nil {
		fmt.Fprintf(&b, "Working directory: %s\n", s.session.Directory)
	}
	fmt.Fprintf(&b, "Platform: %s\n", runtime.GOOS)
	if s.branch != nil && s.branch.Name != "" {
		fmt.Fprintf(&b, "Branch: %s\n", s.branch.Name)
	}
	if s.agent != nil {
		fmt.Fprintf(&b, "Agent: %s (%s)\n", s.agent.Name, s.agent.Mode)
	}
	return b.String()
}

// loadCustomRules reads AGENTS.md from the session directory, matching the
// teacher's convention of folding repo-local instructions into the prompt.
func (s *systemPromptBuilder) loadCustomRules() string {
	if s.session == nil || s.session.Directory == "" {
		return ""
	}
	path := filepath.Join(s.session.Directory, "AGENTS.md")
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "## Project rules (AGENTS.md)\n\n" + string(data)
}
