package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmProvider wraps a gollm.LLM instance and implements Provider.
// It translates between the completion types and gollm's prompt API.
type GollmProvider struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmOption configures a GollmProvider.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithGollmModel sets the default model for the provider.
func WithGollmModel(model string) GollmOption {
	return func(c *gollmConfig) {
		c.model = model
	}
}

// WithGollmMaxTokens sets the default max tokens.
func WithGollmMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) {
		c.maxTokens = n
	}
}

// WithGollmTemperature sets the default temperature.
func WithGollmTemperature(t float64) GollmOption {
	return func(c *gollmConfig) {
		c.temperature = t
	}
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmProvider creates a new GollmProvider for the given backend.
// If apiKey is empty, gollm reads it from environment variables.
func NewGollmProvider(provider string, apiKey string, opts ...GollmOption) (*GollmProvider, error) {
	cfg := &gollmConfig{
		apiKey:      apiKey,
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		if info := GetLatestModel(provider); info != nil {
			model = info.ID
		} else {
			model = "gpt-5.2-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries belong to the caller's policy
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}

	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}

	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmProvider{
		provider: provider,
		llm:      llm,
		model:    model,
	}, nil
}

// NewGollmProviderFromLLM wraps an existing gollm.LLM instance.
func NewGollmProviderFromLLM(provider string, llm gollm.LLM) *GollmProvider {
	return &GollmProvider{
		provider: provider,
		llm:      llm,
	}
}

// Name returns the backend identifier.
func (p *GollmProvider) Name() string {
	return p.provider
}

// SupportsTools reports tool support. Tool use goes through prompt-embedded
// JSON rather than a native tool-call wire format.
func (p *GollmProvider) SupportsTools() bool {
	return true
}

// Complete sends a blocking request and returns the full result.
func (p *GollmProvider) Complete(ctx context.Context, req Request) (*Result, error) {
	prompt := p.translateRequest(req)
	p.applyRequestOptions(req)

	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, p.translateError(err)
	}

	return p.buildResult(req, text), nil
}

// translateRequest converts a Request into a gollm Prompt.
func (p *GollmProvider) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var userParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.TextContent() + "\n"
		case RoleUser:
			for _, block := range msg.Content {
				switch block.Kind {
				case BlockText:
					userParts = append(userParts, block.Text)
				case BlockToolResult:
					if block.ToolResult == nil {
						continue
					}
					prefix := "[Tool Result]"
					if block.ToolResult.IsError {
						prefix = "[Tool Error]"
					}
					content := Message{Content: block.ToolResult.Content}.TextContent()
					userParts = append(userParts, prefix+": "+content)
				}
			}
		case RoleAssistant:
			// For multi-turn, include assistant context.
			if text := msg.TextContent(); text != "" {
				userParts = append(userParts, "[Assistant]: "+text)
			}
			for _, use := range msg.ToolUses() {
				userParts = append(userParts, fmt.Sprintf("[Assistant called %s]: %s", use.Name, string(use.Input)))
			}
		}
	}

	// Combine user messages into a single prompt for gollm.
	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}

	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}

	if req.MaxTokens > 0 {
		promptOpts = append(promptOpts, gollm.WithMaxLength(req.MaxTokens))
	}

	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (p *GollmProvider) applyRequestOptions(req Request) {
	if req.Model != "" {
		p.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		p.llm.SetOption("temperature", *req.Temperature)
	}
	if req.TopP != nil {
		p.llm.SetOption("top_p", *req.TopP)
	}
	if req.MaxTokens > 0 {
		p.llm.SetOption("max_tokens", req.MaxTokens)
	}
}

// buildResult constructs a Result from the generated text.
func (p *GollmProvider) buildResult(req Request, text string) *Result {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var blocks []ContentBlock
	uses := p.parseToolUses(text)

	for _, use := range uses {
		blocks = append(blocks, ContentBlock{Kind: BlockToolUse, ToolUse: &use})
	}

	// Always include any remaining text.
	cleanedText := p.removeToolUseJSON(text, uses)
	if cleanedText != "" {
		blocks = append([]ContentBlock{TextBlock(cleanedText)}, blocks...)
	}

	if len(blocks) == 0 {
		blocks = []ContentBlock{TextBlock(text)}
	}

	stop := StopEndTurn
	if len(uses) > 0 {
		stop = StopToolUse
	}

	inTokens := estimateTokens(req)
	return &Result{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: p.provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: blocks,
		},
		StopSignal: stop,
		Usage: Usage{
			// gollm doesn't expose detailed usage; estimate from text length.
			InputTokens:  inTokens,
			OutputTokens: len(text) / 4,
			TotalTokens:  inTokens + len(text)/4,
		},
	}
}

// parseToolUses attempts to extract tool invocations from the response text.
// gollm may return tool calls as JSON embedded in the text.
func (p *GollmProvider) parseToolUses(text string) []ToolUse {
	var uses []ToolUse

	start := strings.Index(text, `{"tool_calls"`)
	if start == -1 {
		start = strings.Index(text, `[{"name"`)
	}
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	remaining := text[start:]
	if err := json.Unmarshal([]byte(remaining), &rawCalls); err == nil {
		for _, rc := range rawCalls {
			uses = append(uses, ToolUse{
				ID:    "call_" + uuid.New().String()[:8],
				Name:  rc.Name,
				Input: rc.Arguments,
			})
		}
	}

	return uses
}

// removeToolUseJSON removes parsed tool invocation JSON from the text.
func (p *GollmProvider) removeToolUseJSON(text string, uses []ToolUse) string {
	if len(uses) == 0 {
		return text
	}
	result := text
	for _, pattern := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(result, pattern); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

// translateError converts a gollm error into the error hierarchy.
func (p *GollmProvider) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	msgLower := strings.ToLower(msg)
	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid key") || strings.Contains(msgLower, "invalid api key"):
		return &AuthenticationError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider, StatusCode: 401,
		}}
	case strings.Contains(msgLower, "403") || strings.Contains(msgLower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider, StatusCode: 403,
		}}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider, StatusCode: 404,
		}}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider, StatusCode: 413,
		}}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		return &ServerError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "content filter") || strings.Contains(msgLower, "safety"):
		return &ContentFilterError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: p.provider,
		}}
	default:
		// Wrap as a generic provider error (retryable by default).
		return &ProviderError{
			SDKError:  SDKError{Message: msg, Cause: err},
			Provider:  p.provider,
			Retryable: true,
		}
	}
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			if block.Kind == BlockText {
				total += len(block.Text) / 4
			}
		}
	}
	if total == 0 {
		total = 10
	}
	return total
}
