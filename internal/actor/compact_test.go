package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/runtime/pkg/types"
)

func textMessage(text string) *types.Message {
	return &types.Message{
		ID:   types.NewMessageID(),
		Role: "user",
		Parts: []types.Part{
			&types.TextPart{ID: types.NewPartID(), Type: "text", Text: text},
		},
	}
}

func toolResultMessage(toolName, output string) *types.Message {
	return &types.Message{
		ID:   types.NewMessageID(),
		Role: "tool",
		Parts: []types.Part{
			&types.ToolResultPart{
				ToolName: toolName,
				Output:   types.ToolResultOutput{Type: "text", Value: output},
			},
		},
	}
}

func TestEstimateTokensCountsTextParts(t *testing.T) {
	messages := []*types.Message{textMessage("abcd"), textMessage("efgh")}
	assert.Equal(t, 2, estimateTokens(messages))
}

func TestEstimateTokensCountsToolResultString(t *testing.T) {
	messages := []*types.Message{toolResultMessage("bash", "abcdefgh")}
	assert.Equal(t, 2, estimateTokens(messages))
}

func TestEstimateTokensNonStringOutputUsesFlatCost(t *testing.T) {
	messages := []*types.Message{
		{
			ID:   types.NewMessageID(),
			Role: "tool",
			Parts: []types.Part{
				&types.ToolResultPart{
					ToolName: "read",
					Output:   types.ToolResultOutput{Type: "json", Value: map[string]any{"a": 1}},
				},
			},
		},
	}
	assert.Equal(t, 64, estimateTokens(messages))
}

func TestPruneToolOutputsLeavesProtectedWindowUntouched(t *testing.T) {
	messages := []*types.Message{
		toolResultMessage("bash", "old output"),
		toolResultMessage("bash", "recent output"),
	}

	out := pruneToolOutputs(messages, 1)
	require.Len(t, out, 2)

	assert.Same(t, messages[1], out[1])
	assert.NotSame(t, messages[0], out[0])

	prunedPart, ok := out[0].Parts[0].(*types.ToolResultPart)
	require.True(t, ok)
	marker, ok := prunedPart.Output.Value.(types.PrunedMarker)
	require.True(t, ok)
	assert.True(t, marker.Pruned)

	untouchedPart, ok := out[1].Parts[0].(*types.ToolResultPart)
	require.True(t, ok)
	assert.Equal(t, "recent output", untouchedPart.Output.Value)
}

func TestPruneToolOutputsDoesNotMutateOriginal(t *testing.T) {
	messages := []*types.Message{toolResultMessage("bash", "old output")}
	_ = pruneToolOutputs(messages, 0)

	part, ok := messages[0].Parts[0].(*types.ToolResultPart)
	require.True(t, ok)
	assert.Equal(t, "old output", part.Output.Value)
}

func TestPruneToolOutputsNoopWhenUnderProtectedWindow(t *testing.T) {
	messages := []*types.Message{textMessage("a"), textMessage("b")}
	out := pruneToolOutputs(messages, 5)
	assert.Equal(t, messages, out)
}

func TestPruneToolOutputsPreservesNonToolParts(t *testing.T) {
	messages := []*types.Message{textMessage("keep me"), textMessage("recent")}
	out := pruneToolOutputs(messages, 1)

	textPart, ok := out[0].Parts[0].(*types.TextPart)
	require.True(t, ok)
	assert.Equal(t, "keep me", textPart.Text)
}
