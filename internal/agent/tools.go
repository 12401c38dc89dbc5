package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catalert/catalert/internal/provider"
)

// ToolHandler executes a tool call with validated JSON arguments and returns
// the result as a JSON string.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// ToolResult is the outcome of one dispatched tool call. Failures are carried
// in Error rather than raised, so one bad call never aborts its siblings.
type ToolResult struct {
	Name   string `json:"tool_name"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// payload renders the result for the model's tool message.
func (r ToolResult) payload() string {
	if r.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": r.Error})
		return string(b)
	}
	return r.Output
}

// ToolRegistry is the fixed catalog of schema-typed data-retrieval operations
// exposed to the model.
type ToolRegistry struct {
	defs     []provider.Tool
	handlers map[string]ToolHandler
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool definition and its handler.
func (r *ToolRegistry) Register(def provider.Tool, handler ToolHandler) {
	r.defs = append(r.defs, def)
	r.handlers[def.Function.Name] = handler
}

// Definitions returns all tool definitions for the LLM request.
func (r *ToolRegistry) Definitions() []provider.Tool {
	return r.defs
}

// Dispatch validates the call against the declared schema and executes it.
// It never returns an error; schema mismatches, unknown tools and handler
// failures all come back inside the ToolResult.
func (r *ToolRegistry) Dispatch(ctx context.Context, call provider.ToolCall) ToolResult {
	name := call.Function.Name
	res := ToolResult{Name: name}

	handler, ok := r.handlers[name]
	if !ok {
		res.Error = fmt.Sprintf("unknown tool: %s", name)
		return res
	}

	args, err := r.validateArgs(name, call.Function.Arguments)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	out, err := handler(ctx, args)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = out
	return res
}

// validateArgs parses the raw arguments and checks them against the tool's
// declared parameter schema: required keys present, basic types matching.
func (r *ToolRegistry) validateArgs(name, raw string) (map[string]interface{}, error) {
	args := make(map[string]interface{})
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("parse arguments: %v", err)
		}
	}

	schema := r.schemaFor(name)
	if schema == nil {
		return args, nil
	}

	if required, ok := schema["required"].([]string); ok {
		for _, key := range required {
			if _, present := args[key]; !present {
				return nil, fmt.Errorf("missing required argument: %s", key)
			}
		}
	}

	props, _ := schema["properties"].(map[string]interface{})
	for key, val := range args {
		decl, ok := props[key]
		if !ok {
			continue // unknown extras are ignored
		}
		declType := propType(decl)
		if declType == "" {
			continue
		}
		if !typeMatches(declType, val) {
			return nil, fmt.Errorf("argument %s: expected %s", key, declType)
		}
	}
	return args, nil
}

func (r *ToolRegistry) schemaFor(name string) map[string]interface{} {
	for _, def := range r.defs {
		if def.Function.Name == name {
			if m, ok := def.Function.Parameters.(map[string]interface{}); ok {
				return m
			}
			return nil
		}
	}
	return nil
}

func propType(decl interface{}) string {
	switch d := decl.(type) {
	case map[string]string:
		return d["type"]
	case map[string]interface{}:
		t, _ := d["type"].(string)
		return t
	}
	return ""
}

func typeMatches(declType string, val interface{}) bool {
	switch declType {
	case "string":
		_, ok := val.(string)
		return ok
	case "number", "integer":
		_, ok := val.(float64)
		return ok
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		_, ok := val.([]interface{})
		return ok
	case "object":
		_, ok := val.(map[string]interface{})
		return ok
	}
	return true
}
