package provider

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func newTestAnthropic() *AnthropicProvider {
	return NewAnthropicProvider(ProviderConfig{ID: "claude", Name: "Claude"}, zap.NewNop())
}

func TestAnthropicConvertRequest(t *testing.T) {
	p := newTestAnthropic()
	req := &ChatRequest{
		Model: "claude-sonnet-4-5",
		Messages: []Message{
			{Role: "system", Content: "You are a cat care assistant."},
			{Role: "system", Content: "Context snapshot here."},
			{Role: "user", Content: "How is my cat?"},
			{Role: "assistant", ToolCalls: []ToolCall{{
				ID: "tu-1", Type: "function",
				Function: ToolCallFunction{Name: "get_cat_data", Arguments: `{"cat_id":"c1"}`},
			}}},
			{Role: "tool", Content: `{"profile":{}}`, ToolCallID: "tu-1"},
		},
		Tools: []Tool{{
			Type: "function",
			Function: ToolFunction{
				Name:        "get_cat_data",
				Description: "fetch cat data",
				Parameters:  map[string]interface{}{"type": "object"},
			},
		}},
	}

	ar := p.convertRequest(req)

	if ar.System != "You are a cat care assistant.\n\nContext snapshot here." {
		t.Errorf("system = %q", ar.System)
	}
	if ar.MaxTokens != 4096 {
		t.Errorf("max tokens = %d, want default 4096", ar.MaxTokens)
	}
	if len(ar.Tools) != 1 || ar.Tools[0].Name != "get_cat_data" {
		t.Fatalf("tools = %+v", ar.Tools)
	}
	if len(ar.Messages) != 3 {
		t.Fatalf("messages = %d, want 3 (system lifted out)", len(ar.Messages))
	}

	// Assistant tool call becomes a tool_use block.
	blocks, ok := ar.Messages[1].Content.([]anthropicBlock)
	if !ok || len(blocks) != 1 || blocks[0].Type != "tool_use" || blocks[0].ID != "tu-1" {
		t.Errorf("assistant message = %+v", ar.Messages[1])
	}
	// Tool result becomes a user message with a tool_result block.
	if ar.Messages[2].Role != "user" {
		t.Errorf("tool result role = %s, want user", ar.Messages[2].Role)
	}
	resBlocks, ok := ar.Messages[2].Content.([]anthropicBlock)
	if !ok || resBlocks[0].Type != "tool_result" || resBlocks[0].ToolUseID != "tu-1" {
		t.Errorf("tool result message = %+v", ar.Messages[2])
	}
}

func TestAnthropicConvertResponse(t *testing.T) {
	p := newTestAnthropic()
	resp := &anthropicResponse{
		ID:    "msg-1",
		Model: "claude-sonnet-4-5",
		Content: []anthropicBlock{
			{Type: "text", Text: "Let me check."},
			{Type: "tool_use", ID: "tu-9", Name: "get_reminders", Input: json.RawMessage(`{"cat_id":"c1"}`)},
		},
		StopReason: "tool_use",
	}
	resp.Usage.InputTokens = 10
	resp.Usage.OutputTokens = 5

	out := p.convertResponse(resp)

	if out.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %s, want tool_calls", out.FinishReason)
	}
	if out.Content != "Let me check." {
		t.Errorf("content = %q", out.Content)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(out.ToolCalls))
	}
	tc := out.ToolCalls[0]
	if tc.ID != "tu-9" || tc.Function.Name != "get_reminders" || tc.Function.Arguments != `{"cat_id":"c1"}` {
		t.Errorf("tool call = %+v", tc)
	}
	if out.Usage.TotalTokens != 15 {
		t.Errorf("total tokens = %d, want 15", out.Usage.TotalTokens)
	}
}

func TestAnthropicConvertResponsePlainStop(t *testing.T) {
	p := newTestAnthropic()
	out := p.convertResponse(&anthropicResponse{
		Content:    []anthropicBlock{{Type: "text", Text: "All good."}},
		StopReason: "end_turn",
	})
	if out.FinishReason != "end_turn" {
		t.Errorf("finish reason = %s", out.FinishReason)
	}
	if len(out.ToolCalls) != 0 {
		t.Errorf("tool calls = %+v", out.ToolCalls)
	}
}
