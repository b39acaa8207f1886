// Package schema provides a lightweight representation of JSON Schema
// documents, used to describe tool input parameters.
package schema

import (
	"encoding/json"
	"fmt"
)

const URL = "http://json-schema.org/draft-07/schema#"

type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

// JSON is a way to describe a JSON Schema
type JSON struct {
	Type                 interface{}      `json:"type,omitzero"` // Can be Type or []interface{} for union types like ["string", "null"]
	Description          string           `json:"description,omitzero"`
	Properties           map[string]*JSON `json:"properties,omitzero"`
	Items                *JSON            `json:"items,omitzero"`
	Enum                 []string         `json:"enum,omitzero"`
	Required             []string         `json:"required,omitzero"`
	AdditionalProperties *bool            `json:"additionalProperties,omitzero"`
	Schema               string           `json:"$schema,omitzero"`
	OneOf                []*JSON          `json:"oneOf,omitzero"`
	AnyOf                []*JSON          `json:"anyOf,omitzero"`
	AllOf                []*JSON          `json:"allOf,omitzero"`
}

// EmptyObject returns the schema for a tool that takes no arguments.
func EmptyObject() *JSON {
	return &JSON{Type: Object, Properties: map[string]*JSON{}}
}

// MCPToolDef renders the compact MCP tool definition JSON that
// chat.ToolDef.MCPJsonSchema expects: name, description, and inputSchema.
func MCPToolDef(name, description string, input *JSON) (string, error) {
	if name == "" {
		return "", fmt.Errorf("tool name is required")
	}
	if input == nil {
		input = EmptyObject()
	}

	def := struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema *JSON  `json:"inputSchema"`
	}{
		Name:        name,
		Description: description,
		InputSchema: input,
	}

	data, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshaling tool definition: %w", err)
	}
	return string(data), nil
}
