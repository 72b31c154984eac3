package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPartRoundTrip(t *testing.T) {
	cases := []Part{
		&TextPart{ID: "prt_1", Type: "text", Text: "hello"},
		&ToolCallPart{ID: "prt_2", Type: "tool_call", ToolCallID: "call_1", ToolName: "bash", Input: map[string]any{"command": "ls"}},
		&ToolResultPart{ID: "prt_3", Type: "tool_result", ToolCallID: "call_1", ToolName: "bash", Output: ToolResultOutput{Type: "json", Value: "ok"}},
		&ImagePart{ID: "prt_4", Type: "image", MediaType: "image/png", URL: "file:///x.png"},
	}

	for _, want := range cases {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		got, err := UnmarshalPart(data)
		require.NoError(t, err)
		assert.Equal(t, want.PartType(), got.PartType())
		assert.Equal(t, want.PartID(), got.PartID())
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Storage: not found", FormatError(&StorageError{Message: "not found"}))
	assert.Equal(t, "claude-sonnet: overloaded", FormatError(&ProviderError{Model: "claude-sonnet", Message: "overloaded"}))
	assert.Equal(t, "", FormatError(nil))
}

func TestEventEnvelopeTag(t *testing.T) {
	var e Event = StreamChunk{Chunk: "hi"}
	assert.Equal(t, "StreamChunk", e.Tag())
}
