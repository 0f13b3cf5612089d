package completion

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestAnthropicTranslateRequest(t *testing.T) {
	p := NewAnthropicProvider("test-key")
	temp := 0.2
	req := Request{
		Model:       "claude-opus-4-6",
		MaxTokens:   1024,
		Temperature: &temp,
		Messages: []Message{
			SystemMessage("be precise"),
			UserMessage("What is 2+2?"),
			{Role: RoleAssistant, Content: []ContentBlock{
				TextBlock("Let me compute."),
				ToolUseBlock("c1", "add", json.RawMessage(`{"a":2,"b":2}`)),
			}},
			ToolResultsMessage([]ContentBlock{ToolResultBlock("c1", "4", false)}),
		},
		Tools: []ToolDefinition{{
			Name:        "add",
			Description: "adds two numbers",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": map[string]interface{}{"type": "number"},
					"b": map[string]interface{}{"type": "number"},
				},
				"required": []interface{}{"a", "b"},
			},
		}},
	}

	params := p.translateRequest(req)
	if params.Model != anthropic.Model("claude-opus-4-6") {
		t.Errorf("expected model forwarded, got %q", params.Model)
	}
	if params.MaxTokens != 1024 {
		t.Errorf("expected max tokens forwarded, got %d", params.MaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "be precise" {
		t.Errorf("expected system prompt extracted, got %+v", params.System)
	}
	// System message is lifted out of the message stream.
	if len(params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(params.Messages))
	}
	if len(params.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(params.Tools))
	}
	tool := params.Tools[0].OfTool
	if tool == nil || tool.Name != "add" {
		t.Fatalf("expected tool param, got %+v", params.Tools[0])
	}
	if len(tool.InputSchema.Required) != 2 {
		t.Errorf("expected required fields converted, got %v", tool.InputSchema.Required)
	}
}

func TestAnthropicBuildResult(t *testing.T) {
	p := NewAnthropicProvider("test-key")
	resp := &anthropic.Message{
		ID:         "msg_123",
		Model:      anthropic.Model("claude-opus-4-6"),
		StopReason: anthropic.StopReasonToolUse,
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Let me check."},
			{Type: "tool_use", ID: "c1", Name: "add", Input: json.RawMessage(`{"a":2,"b":2}`)},
		},
		Usage: anthropic.Usage{InputTokens: 20, OutputTokens: 8},
	}

	result := p.buildResult(resp)
	if result.ID != "msg_123" || result.Provider != "anthropic" {
		t.Errorf("unexpected metadata: %+v", result)
	}
	if result.StopSignal != StopToolUse {
		t.Errorf("expected tool_use stop signal, got %q", result.StopSignal)
	}
	if result.Text() != "Let me check." {
		t.Errorf("unexpected text: %q", result.Text())
	}
	uses := result.ToolUses()
	if len(uses) != 1 || uses[0].ID != "c1" || uses[0].Name != "add" {
		t.Fatalf("unexpected tool uses: %+v", uses)
	}
	if result.Usage.TotalTokens != 28 {
		t.Errorf("expected usage summed, got %+v", result.Usage)
	}
}

func TestAnthropicBuildResultEndTurn(t *testing.T) {
	p := NewAnthropicProvider("test-key")
	resp := &anthropic.Message{
		ID:         "msg_456",
		Model:      anthropic.Model("claude-opus-4-6"),
		StopReason: anthropic.StopReasonEndTurn,
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "The answer is 4"},
		},
	}

	result := p.buildResult(resp)
	if result.StopSignal != StopEndTurn {
		t.Errorf("expected end_turn, got %q", result.StopSignal)
	}
	if result.Text() != "The answer is 4" {
		t.Errorf("unexpected text: %q", result.Text())
	}
}
