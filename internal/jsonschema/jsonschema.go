// Package jsonschema converts the JSON Schema each Tool publishes for its
// parameters into Eino's schema.ParameterInfo map, the shape
// components/model.ToolCallingChatModel needs to advertise tool calls to a
// provider. Consolidates what the teacher independently defined three
// times (tool/tool.go, session/loop.go, provider/provider.go) as
// parseJSONSchemaToParams.
package jsonschema

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"
)

// ToParams parses a JSON Schema document (as produced by a Tool's
// Parameters() method) into Eino's parameter map.
func ToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var doc struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil
	}

	required := make(map[string]bool, len(doc.Required))
	for _, r := range doc.Required {
		required[r] = true
	}

	params := make(map[string]*schema.ParameterInfo, len(doc.Properties))
	for name, prop := range doc.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: required[name],
		}
	}
	return params
}
