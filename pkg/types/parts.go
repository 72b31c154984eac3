package types

import "encoding/json"

// Part is a tagged sum type: exactly one of Text/ToolCall/ToolResult/Image
// is populated per the discriminated union in §3. The interface mirrors the
// teacher's Part dispatch pattern (PartType + UnmarshalPart) generalized to
// the spec's four-member taxonomy instead of the teacher's text/reasoning/
// tool/file split.
type Part interface {
	PartType() string
	PartID() string
}

// TextPart is a plain text content part.
type TextPart struct {
	ID   string `json:"id"`
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

func (p *TextPart) PartType() string { return "text" }
func (p *TextPart) PartID() string   { return p.ID }

// ToolCallPart records a tool invocation requested by the model.
type ToolCallPart struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"` // always "tool_call"
	ToolCallID string         `json:"toolCallID"`
	ToolName   string         `json:"toolName"`
	Input      map[string]any `json:"input"`
}

func (p *ToolCallPart) PartType() string { return "tool_call" }
func (p *ToolCallPart) PartID() string   { return p.ID }

// ToolResultOutput is the discriminated result value: "json" on success,
// "error-json" on any failure (§4.C step 4).
type ToolResultOutput struct {
	Type  string `json:"type"` // "json" | "error-json"
	Value any    `json:"value"`
}

// ToolResultPart carries the outcome of exactly one ToolCallPart, matched
// by ToolCallID (invariant 1: one-to-one correspondence within a branch).
type ToolResultPart struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"` // always "tool_result"
	ToolCallID string           `json:"toolCallID"`
	ToolName   string           `json:"toolName"`
	Output     ToolResultOutput `json:"output"`
}

func (p *ToolResultPart) PartType() string { return "tool_result" }
func (p *ToolResultPart) PartID() string   { return p.ID }

// ImagePart is a binary/image attachment reference.
type ImagePart struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // always "image"
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
}

func (p *ImagePart) PartType() string { return "image" }
func (p *ImagePart) PartID() string   { return p.ID }

type rawPart struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// UnmarshalPart dispatches on the "type" discriminator, mirroring the
// teacher's pkg/types.UnmarshalPart pattern.
func UnmarshalPart(data []byte) (Part, error) {
	var raw rawPart
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "tool_call":
		var p ToolCallPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "tool_result":
		var p ToolResultPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "image":
		var p ImagePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
}

// PrunedMarker replaces a ToolResultPart.Output.Value during compaction's
// tool-output pruning pass (§4.D Compaction), preserving the ToolCall/
// ToolResult identity pairing while discarding the bulky original output.
type PrunedMarker struct {
	Pruned  bool   `json:"_pruned"`
	Summary string `json:"summary"`
}
