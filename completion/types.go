package completion

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind is the discriminator tag for ContentBlock.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ToolUse represents a model-initiated tool invocation.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultContent holds the outcome of one tool invocation, correlated to
// the originating ToolUse by ID.
type ToolResultContent struct {
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content"`
	IsError   bool           `json:"is_error"`
}

// ContentBlock is a closed tagged union over the three block kinds the
// sampling loop traffics in. Exactly one variant pointer is set for the
// pointer-backed kinds; construct blocks through the constructors below so
// the tag and the variant never disagree.
type ContentBlock struct {
	Kind       BlockKind          `json:"kind"`
	Text       string             `json:"text,omitempty"`
	ToolUse    *ToolUse           `json:"tool_use,omitempty"`
	ToolResult *ToolResultContent `json:"tool_result,omitempty"`
}

// TextBlock creates a text ContentBlock.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ToolUseBlock creates a tool invocation ContentBlock.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{
		Kind:    BlockToolUse,
		ToolUse: &ToolUse{ID: id, Name: name, Input: input},
	}
}

// ToolResultBlock creates a tool result ContentBlock whose content is a
// single text block. This is the shape tool executors produce.
func ToolResultBlock(toolUseID, text string, isError bool) ContentBlock {
	return ContentBlock{
		Kind: BlockToolResult,
		ToolResult: &ToolResultContent{
			ToolUseID: toolUseID,
			Content:   []ContentBlock{TextBlock(text)},
			IsError:   isError,
		},
	}
}

// Message is the fundamental unit of conversation. Messages are treated as
// immutable once appended to a conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextContent returns the concatenation of all text blocks, in block order,
// with no separator.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Kind == BlockText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// ToolUses extracts all tool invocation requests from the message content,
// in block order.
func (m Message) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, block := range m.Content {
		if block.Kind == BlockToolUse && block.ToolUse != nil {
			uses = append(uses, *block.ToolUse)
		}
	}
	return uses
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{TextBlock(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage creates an assistant Message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// ToolResultsMessage wraps a batch of tool result blocks in a user Message,
// the form in which results re-enter the conversation.
func ToolResultsMessage(results []ContentBlock) Message {
	return Message{Role: RoleUser, Content: results}
}

// StopSignal indicates whether the model wants to keep calling tools or is
// finished. Providers must map their native stop reasons onto these two
// values; anything else is a protocol error to the loop.
type StopSignal string

const (
	StopEndTurn StopSignal = "end_turn"
	StopToolUse StopSignal = "tool_use"
)

// Valid reports whether s is one of the defined stop signals.
func (s StopSignal) Valid() bool {
	return s == StopEndTurn || s == StopToolUse
}

// ToolDefinition describes a tool for the model: name, description, and a
// JSON Schema constraining generated input.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Request is the input to a Complete call.
type Request struct {
	Model           string                 `json:"model"`
	Messages        []Message              `json:"messages"`
	Tools           []ToolDefinition       `json:"tools,omitempty"`
	MaxTokens       int                    `json:"max_tokens,omitempty"` // advisory per-turn cap
	Temperature     *float64               `json:"temperature,omitempty"`
	TopP            *float64               `json:"top_p,omitempty"`
	Provider        string                 `json:"provider,omitempty"`
	ProviderOptions map[string]interface{} `json:"provider_options,omitempty"`
}

// Usage tracks token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Result is the output of a Complete call.
type Result struct {
	ID         string     `json:"id"`
	Model      string     `json:"model"`
	Provider   string     `json:"provider"`
	Message    Message    `json:"message"`
	StopSignal StopSignal `json:"stop_signal"`
	Usage      Usage      `json:"usage"`
}

// Text returns the concatenated text blocks of the result message.
func (r Result) Text() string {
	return r.Message.TextContent()
}

// ToolUses extracts tool invocation requests from the result message.
func (r Result) ToolUses() []ToolUse {
	return r.Message.ToolUses()
}
