package completion

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = anthropic.ModelClaude4Sonnet20250514
	defaultAnthropicMaxTokens = int64(8096)
)

// AnthropicProvider implements Provider on top of the official Anthropic
// SDK. Unlike the gollm path, tool use travels in the native wire format.
type AnthropicProvider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model anthropic.Model) AnthropicOption {
	return func(p *AnthropicProvider) { p.model = model }
}

// WithAnthropicMaxTokens sets the default per-turn output token cap.
func WithAnthropicMaxTokens(n int64) AnthropicOption {
	return func(p *AnthropicProvider) { p.maxTokens = n }
}

// NewAnthropicProvider creates an AnthropicProvider with the given API key.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     defaultAnthropicModel,
		maxTokens: defaultAnthropicMaxTokens,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// SupportsTools reports native tool support.
func (p *AnthropicProvider) SupportsTools() bool { return true }

// Complete sends a blocking request and returns the full result.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Result, error) {
	params := p.translateRequest(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.translateError(err)
	}
	if len(resp.Content) == 0 {
		return nil, &MalformedResultError{SDKError: SDKError{
			Message: "anthropic returned empty content",
		}}
	}

	return p.buildResult(resp), nil
}

// translateRequest converts a Request into Anthropic message params.
func (p *AnthropicProvider) translateRequest(req Request) anthropic.MessageNewParams {
	model := p.model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			if text := msg.TextContent(); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch block.Kind {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(block.Text))
			case BlockToolUse:
				if block.ToolUse == nil {
					continue
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    block.ToolUse.ID,
						Name:  block.ToolUse.Name,
						Input: block.ToolUse.Input,
					},
				})
			case BlockToolResult:
				if block.ToolResult == nil {
					continue
				}
				content := Message{Content: block.ToolResult.Content}.TextContent()
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: block.ToolResult.ToolUseID,
						IsError:   anthropic.Bool(block.ToolResult.IsError),
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: content}},
						},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if msg.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
		Tools:     translateToolDefs(req.Tools),
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	return params
}

// translateToolDefs converts tool definitions to Anthropic tool params.
func translateToolDefs(tools []ToolDefinition) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.InputSchema["properties"],
		}
		if raw, ok := t.InputSchema["required"].([]interface{}); ok {
			required := make([]string, 0, len(raw))
			for _, r := range raw {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
			schema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

// buildResult converts an Anthropic message into a Result.
func (p *AnthropicProvider) buildResult(resp *anthropic.Message) *Result {
	blocks := make([]ContentBlock, 0, len(resp.Content))
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, TextBlock(b.Text))
		case "tool_use":
			blocks = append(blocks, ToolUseBlock(b.ID, b.Name, b.Input))
		}
	}

	stop := StopEndTurn
	if resp.StopReason == anthropic.StopReasonToolUse {
		stop = StopToolUse
	}

	in := int(resp.Usage.InputTokens)
	out := int(resp.Usage.OutputTokens)
	return &Result{
		ID:       resp.ID,
		Model:    string(resp.Model),
		Provider: "anthropic",
		Message: Message{
			Role:    RoleAssistant,
			Content: blocks,
		},
		StopSignal: stop,
		Usage: Usage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}
}

// translateError converts an Anthropic SDK error into the error hierarchy.
func (p *AnthropicProvider) translateError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return ErrorFromStatusCode(apierr.StatusCode, apierr.Error(), "anthropic", "", nil)
	}
	return &NetworkError{SDKError: SDKError{Message: "anthropic request failed", Cause: err}}
}
