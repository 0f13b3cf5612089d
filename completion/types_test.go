package completion

import (
	"encoding/json"
	"testing"
)

func TestMessageTextContent(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			TextBlock("The answer"),
			ToolUseBlock("c1", "calc", json.RawMessage(`{}`)),
			TextBlock(" is 4"),
		},
	}
	if got := msg.TextContent(); got != "The answer is 4" {
		t.Errorf("expected text blocks concatenated without separator, got %q", got)
	}
}

func TestMessageToolUses(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			TextBlock("Let me check."),
			ToolUseBlock("c1", "read", json.RawMessage(`{"path":"a"}`)),
			ToolUseBlock("c2", "read", json.RawMessage(`{"path":"b"}`)),
		},
	}
	uses := msg.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(uses))
	}
	if uses[0].ID != "c1" || uses[1].ID != "c2" {
		t.Errorf("expected block order preserved, got %v", uses)
	}
}

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		role Role
		text string
	}{
		{"system", SystemMessage("be brief"), RoleSystem, "be brief"},
		{"user", UserMessage("hi"), RoleUser, "hi"},
		{"assistant", AssistantMessage("hello"), RoleAssistant, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.msg.Role != tt.role {
				t.Errorf("expected role %q, got %q", tt.role, tt.msg.Role)
			}
			if tt.msg.TextContent() != tt.text {
				t.Errorf("expected text %q, got %q", tt.text, tt.msg.TextContent())
			}
		})
	}
}

func TestToolResultsMessage(t *testing.T) {
	msg := ToolResultsMessage([]ContentBlock{
		ToolResultBlock("c1", "ok", false),
		ToolResultBlock("c2", "boom", true),
	})
	if msg.Role != RoleUser {
		t.Errorf("tool results must re-enter as a user message, got %q", msg.Role)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msg.Content))
	}
	if !msg.Content[1].ToolResult.IsError {
		t.Error("expected error flag preserved")
	}
}

func TestToolResultBlockShape(t *testing.T) {
	block := ToolResultBlock("c1", "output text", false)
	if block.Kind != BlockToolResult {
		t.Fatalf("expected tool_result kind, got %q", block.Kind)
	}
	tr := block.ToolResult
	if tr.ToolUseID != "c1" {
		t.Errorf("expected correlation ID, got %q", tr.ToolUseID)
	}
	if len(tr.Content) != 1 || tr.Content[0].Kind != BlockText || tr.Content[0].Text != "output text" {
		t.Errorf("expected single nested text block, got %+v", tr.Content)
	}
}

func TestStopSignalValid(t *testing.T) {
	if !StopEndTurn.Valid() || !StopToolUse.Valid() {
		t.Error("expected defined signals to be valid")
	}
	if StopSignal("length").Valid() {
		t.Error("expected undefined signal to be invalid")
	}
	if StopSignal("").Valid() {
		t.Error("expected empty signal to be invalid")
	}
}

func TestUsageAdd(t *testing.T) {
	total := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}.
		Add(Usage{InputTokens: 20, OutputTokens: 10, TotalTokens: 30})
	if total.InputTokens != 30 || total.OutputTokens != 15 || total.TotalTokens != 45 {
		t.Errorf("unexpected sum: %+v", total)
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	original := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			TextBlock("calling"),
			ToolUseBlock("c1", "calc", json.RawMessage(`{"a":1}`)),
		},
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.TextContent() != "calling" {
		t.Errorf("text lost in round trip: %+v", decoded)
	}
	uses := decoded.ToolUses()
	if len(uses) != 1 || uses[0].ID != "c1" || string(uses[0].Input) != `{"a":1}` {
		t.Errorf("tool use lost in round trip: %+v", uses)
	}
}
