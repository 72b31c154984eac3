package actor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/agentcore-ai/runtime/internal/provider"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// CompactionConfig controls when and how the prompt built for a turn is
// shrunk, adapted from the teacher's CompactionConfig
// (internal/session/compact.go) to the two-stage pruning/summarizing
// strategy the spec requires instead of the teacher's single summarize
// pass.
type CompactionConfig struct {
	// TokenBudget is the prompt token threshold (estimated at
	// ceil(chars/4)) that triggers pruning.
	TokenBudget int
	// PruneProtectMessages is how many of the most recent messages are
	// never pruned or summarized, regardless of budget.
	PruneProtectMessages int
	// SummaryMaxTokens bounds the synthetic summary message produced when
	// pruning alone isn't enough.
	SummaryMaxTokens int
}

// DefaultCompactionConfig mirrors the teacher's defaults, expressed in the
// spec's token-budget terms instead of a context-percentage threshold.
var DefaultCompactionConfig = CompactionConfig{
	TokenBudget:          150000,
	PruneProtectMessages: 4,
	SummaryMaxTokens:     2000,
}

// estimateTokens applies the spec's guideline estimator (ceil(chars/4))
// over every text/tool part of every message.
func estimateTokens(messages []*types.Message) int {
	chars := 0
	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case *types.TextPart:
				chars += len(p.Text)
			case *types.ToolCallPart:
				chars += len(p.ToolName) + 32
			case *types.ToolResultPart:
				if s, ok := p.Output.Value.(string); ok {
					chars += len(s)
				} else {
					chars += 256
				}
			}
		}
	}
	return (chars + 3) / 4
}

// pruneToolOutputs returns a shallow-copied message slice with
// ToolResultPart.Output.Value replaced by a PrunedMarker for every message
// outside the protected recent window, preserving the ToolCall/ToolResult
// identity pairing (§4.D Compaction). The stored branch history is never
// mutated; this operates only on the slice about to be sent to the
// provider.
func pruneToolOutputs(messages []*types.Message, protectRecent int) []*types.Message {
	if len(messages) <= protectRecent {
		return messages
	}
	cut := len(messages) - protectRecent

	out := make([]*types.Message, len(messages))
	for i, msg := range messages {
		if i >= cut {
			out[i] = msg
			continue
		}
		pruned := *msg
		pruned.Parts = make([]types.Part, len(msg.Parts))
		for j, part := range msg.Parts {
			if tr, ok := part.(*types.ToolResultPart); ok {
				prunedPart := *tr
				prunedPart.Output = types.ToolResultOutput{
					Type:  "json",
					Value: types.PrunedMarker{Pruned: true, Summary: fmt.Sprintf("%s output pruned", tr.ToolName)},
				}
				pruned.Parts[j] = &prunedPart
				continue
			}
			pruned.Parts[j] = part
		}
		out[i] = &pruned
	}
	return out
}

// summarizePrefix asks providerReg's default model to condense toCompact
// into one synthetic assistant message. The provider interface offers no
// non-streaming generate call, so this opens an ordinary CreateCompletion
// stream and drains it to completion, concatenating the text rather than
// forwarding chunks, the way the teacher's compactMessages does.
func summarizePrefix(ctx context.Context, providerReg *provider.Registry, toCompact []*types.Message, cfg CompactionConfig) (string, error) {
	model, err := providerReg.DefaultModel()
	if err != nil {
		return "", &types.ProviderError{Message: "no model available for summarization", Cause: err}
	}
	prov, err := providerReg.Get(model.ProviderID)
	if err != nil {
		return "", &types.ProviderError{Model: model.ID, Message: "provider not found", Cause: err}
	}

	var transcript strings.Builder
	for _, msg := range toCompact {
		transcript.WriteString(msg.Role)
		transcript.WriteString(": ")
		for _, part := range msg.Parts {
			if t, ok := part.(*types.TextPart); ok {
				transcript.WriteString(t.Text)
			}
		}
		transcript.WriteString("\n")
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: "Summarize the following conversation prefix concisely, preserving facts and decisions needed to continue it."},
		{Role: schema.User, Content: transcript.String()},
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model:     model.ID,
		Messages:  messages,
		MaxTokens: cfg.SummaryMaxTokens,
	})
	if err != nil {
		return "", &types.ProviderError{Model: model.ID, Message: "summarization request failed", Cause: err}
	}
	defer stream.Close()

	var summary strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &types.ProviderError{Model: model.ID, Message: "summarization stream failed", Cause: err}
		}
		summary.WriteString(chunk.Content)
	}
	return summary.String(), nil
}

// SummarizeBranch condenses messages into a single synthetic summary the
// way summarizePrefix does for a prompt prefix, exported for
// compactBranch's explicit, user-triggered branch summarization (§6) as
// opposed to the implicit per-turn prompt compaction compactForPrompt
// performs.
func SummarizeBranch(ctx context.Context, providerReg *provider.Registry, messages []*types.Message, cfg CompactionConfig) (string, error) {
	return summarizePrefix(ctx, providerReg, messages, cfg)
}

// compactForPrompt applies the spec's two-stage compaction (prune, then
// summarize if still over budget) to the messages about to be sent as a
// prompt, leaving stored history untouched.
func compactForPrompt(ctx context.Context, providerReg *provider.Registry, messages []*types.Message, cfg CompactionConfig) ([]*types.Message, error) {
	if estimateTokens(messages) <= cfg.TokenBudget {
		return messages, nil
	}

	pruned := pruneToolOutputs(messages, cfg.PruneProtectMessages)
	if estimateTokens(pruned) <= cfg.TokenBudget {
		return pruned, nil
	}

	if len(pruned) <= cfg.PruneProtectMessages {
		return pruned, nil
	}
	cut := len(pruned) - cfg.PruneProtectMessages
	toCompact, rest := pruned[:cut], pruned[cut:]

	summary, err := summarizePrefix(ctx, providerReg, toCompact, cfg)
	if err != nil {
		// Compaction is best-effort: fall back to the pruned (but
		// unsummarized) prompt rather than failing the turn.
		return pruned, nil
	}

	summaryMsg := &types.Message{
		ID:   types.NewMessageID(),
		Role: "assistant",
		Parts: []types.Part{
			&types.TextPart{ID: types.NewPartID(), Type: "text", Text: "[Earlier conversation summarized]: " + summary},
		},
	}

	out := make([]*types.Message, 0, len(rest)+1)
	out = append(out, summaryMsg)
	out = append(out, rest...)
	return out, nil
}
