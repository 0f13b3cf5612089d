package sampling

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mfaircloth/toolcycle/completion"
)

// DefaultMaxTurns bounds provider calls per run when Config.MaxTurns is zero.
// A run always has a runaway guard.
const DefaultMaxTurns = 200

// defaultRepeatWindow is the tool-call window inspected for repeats.
const defaultRepeatWindow = 10

// Completer is the single operation the loop needs from a completion
// backend. completion.Client and the concrete providers all satisfy it.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// Config holds configuration for a Loop. The tool set and limits are fixed
// for the lifetime of the Loop.
type Config struct {
	Model            string
	Tools            []Tool
	MaxTurns         int // 0 = DefaultMaxTurns
	MaxTokensPerTurn int // advisory; forwarded to the provider, never enforced here
	Temperature      *float64
	Retry            *completion.RetryPolicy
	ToolOutputLimits map[string]int
	ToolLineLimits   map[string]int
	DetectRepeats    bool
	RepeatWindow     int
	Transcript       *Transcript
	EventBuffer      int
	ProviderOptions  map[string]interface{}
}

// Loop drives repeated completion requests against a Completer, executing
// the tool invocations each response asks for, until the model signals it
// is done or a limit or cancellation intervenes.
//
// A Loop holds configuration only; each Run owns its conversation
// exclusively and no state survives between runs. Concurrent Run calls on
// one Loop are safe and share nothing but the event stream.
type Loop struct {
	id        string
	completer Completer
	registry  *Registry
	config    Config
	emitter   *EventEmitter
}

// New creates a Loop over the given completion backend.
func New(completer Completer, config Config) *Loop {
	id := uuid.New().String()

	registry := NewRegistry()
	for _, tool := range config.Tools {
		registry.Register(tool)
	}
	if config.RepeatWindow <= 0 {
		config.RepeatWindow = defaultRepeatWindow
	}

	return &Loop{
		id:        id,
		completer: completer,
		registry:  registry,
		config:    config,
		emitter:   NewEventEmitter(id, config.EventBuffer),
	}
}

// ID returns the loop identifier.
func (l *Loop) ID() string { return l.id }

// Events returns the event channel for the host application.
func (l *Loop) Events() <-chan Event { return l.emitter.Events() }

// Close closes the event stream. Runs in flight keep working; their events
// are dropped.
func (l *Loop) Close() { l.emitter.Close() }

// Run processes one conversation through the loop and returns the text of
// the model's final turn: the concatenation of the text blocks of the last
// assistant message, in block order, with no separator.
//
// The conversation must be non-empty and end with a user message. Terminal
// failures are *RunError; tool execution failures are not failures here —
// they flow back to the model as error-flagged results.
func (l *Loop) Run(ctx context.Context, initial []completion.Message) (string, error) {
	if err := validateInitial(initial); err != nil {
		return "", err
	}

	maxTurns := l.config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	retry := completion.DefaultRetryPolicy()
	if l.config.Retry != nil {
		retry = *l.config.Retry
	}

	conversation := make([]completion.Message, 0, len(initial)+4)
	for _, msg := range initial {
		l.append(&conversation, msg)
	}

	defs := l.registry.Definitions()
	l.emitter.Emit(EventRunStart, map[string]interface{}{
		"messages": len(initial),
		"tools":    len(defs),
	})

	for turn := 1; ; turn++ {
		if ctx.Err() != nil {
			return "", l.fail(KindCancelled, ctx.Err())
		}

		req := completion.Request{
			Model:           l.config.Model,
			Messages:        conversation,
			Tools:           defs,
			MaxTokens:       l.config.MaxTokensPerTurn,
			Temperature:     l.config.Temperature,
			ProviderOptions: l.config.ProviderOptions,
		}

		l.emitter.Emit(EventCompletionStart, map[string]interface{}{"turn": turn})
		result, err := completion.Retry(ctx, retry, func(ctx context.Context) (*completion.Result, error) {
			return l.completer.Complete(ctx, req)
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", l.fail(KindCancelled, ctx.Err())
			}
			return "", l.fail(KindProviderFailure, err)
		}

		assistant := normalizeToolUseIDs(result.Message)
		l.append(&conversation, assistant)
		l.emitter.Emit(EventCompletionEnd, map[string]interface{}{
			"turn":        turn,
			"text":        assistant.TextContent(),
			"stop_signal": string(result.StopSignal),
		})
		l.checkContextUsage(conversation)

		switch result.StopSignal {
		case completion.StopEndTurn:
			final := assistant.TextContent()
			l.emitter.Emit(EventRunEnd, map[string]interface{}{"turns": turn})
			return final, nil
		case completion.StopToolUse:
			// Fall through to tool execution.
		default:
			return "", l.fail(KindProviderFailure, &completion.MalformedResultError{
				SDKError: completion.SDKError{Message: fmt.Sprintf("undefined stop signal %q", result.StopSignal)},
			})
		}

		uses := assistant.ToolUses()
		if len(uses) == 0 {
			return "", l.fail(KindProviderFailure, &completion.MalformedResultError{
				SDKError: completion.SDKError{Message: "tool_use stop signal without tool_use blocks"},
			})
		}

		if turn >= maxTurns {
			l.emitter.Emit(EventTurnLimit, map[string]interface{}{"turns": turn})
			return "", l.fail(KindTurnLimit, fmt.Errorf("still requesting tools after %d turns", turn))
		}

		// Every requested name is validated before any executor starts, so
		// an unknown-tool turn performs no tool work at all.
		for _, use := range uses {
			if l.registry.Get(use.Name) == nil {
				return "", l.fail(KindUnknownTool, fmt.Errorf("tool %q is not in the configured set", use.Name))
			}
		}

		results := l.executeToolUses(ctx, uses)
		l.append(&conversation, completion.ToolResultsMessage(results))

		if ctx.Err() != nil {
			return "", l.fail(KindCancelled, ctx.Err())
		}

		if l.config.DetectRepeats && DetectRepeat(conversation, l.config.RepeatWindow) {
			warning := fmt.Sprintf("The last %d tool calls follow a repeating pattern. Try a different approach.", l.config.RepeatWindow)
			l.append(&conversation, completion.UserMessage(warning))
			l.emitter.Emit(EventRepeatDetected, map[string]interface{}{"message": warning})
		}
	}
}

// append extends the conversation and mirrors the message to the transcript
// when one is configured. Transcript failures degrade to warnings.
func (l *Loop) append(conversation *[]completion.Message, msg completion.Message) {
	*conversation = append(*conversation, msg)
	if l.config.Transcript != nil {
		if err := l.config.Transcript.Append(msg); err != nil {
			l.emitter.Emit(EventWarning, map[string]interface{}{
				"message": fmt.Sprintf("transcript append failed: %v", err),
			})
		}
	}
}

// executeToolUses dispatches every requested invocation, in parallel when a
// turn carries more than one, and reassembles the results in the original
// request order. The join is a full barrier: no partial result set is ever
// fed back.
func (l *Loop) executeToolUses(ctx context.Context, uses []completion.ToolUse) []completion.ContentBlock {
	if len(uses) == 1 {
		return []completion.ContentBlock{l.executeSingle(ctx, uses[0])}
	}

	// Concurrent execution may complete out of order; correlate by call ID,
	// not position.
	byID := make(map[string]completion.ContentBlock, len(uses))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, use := range uses {
		wg.Add(1)
		go func(use completion.ToolUse) {
			defer wg.Done()
			block := l.executeSingle(ctx, use)
			mu.Lock()
			byID[use.ID] = block
			mu.Unlock()
		}(use)
	}
	wg.Wait()

	ordered := make([]completion.ContentBlock, 0, len(uses))
	for _, use := range uses {
		ordered = append(ordered, byID[use.ID])
	}
	return ordered
}

// executeSingle handles one invocation: run, truncate, emit, wrap. The
// registry lookup cannot miss: names are validated before dispatch.
func (l *Loop) executeSingle(ctx context.Context, use completion.ToolUse) completion.ContentBlock {
	l.emitter.Emit(EventToolCallStart, map[string]interface{}{
		"tool_name": use.Name,
		"call_id":   use.ID,
	})

	tool := l.registry.Get(use.Name)
	rawOutput, err := tool.Run(ctx, use.Input)
	if err != nil {
		errorMsg := fmt.Sprintf("Tool error (%s): %v", use.Name, err)
		l.emitter.Emit(EventToolCallEnd, map[string]interface{}{
			"call_id": use.ID,
			"error":   errorMsg,
		})
		return completion.ToolResultBlock(use.ID, errorMsg, true)
	}

	truncated := TruncateToolOutput(rawOutput, use.Name, l.config.ToolOutputLimits, l.config.ToolLineLimits)

	// Full untruncated output goes to the event stream.
	l.emitter.Emit(EventToolCallEnd, map[string]interface{}{
		"call_id": use.ID,
		"output":  rawOutput,
	})

	return completion.ToolResultBlock(use.ID, truncated, false)
}

// checkContextUsage emits a warning if approximate usage exceeds 80% of the
// model's context window.
func (l *Loop) checkContextUsage(conversation []completion.Message) {
	info := completion.GetModelInfo(l.config.Model)
	if info == nil || info.ContextWindow <= 0 {
		return
	}

	totalChars := 0
	for _, msg := range conversation {
		for _, block := range msg.Content {
			switch block.Kind {
			case completion.BlockText:
				totalChars += len(block.Text)
			case completion.BlockToolUse:
				if block.ToolUse != nil {
					totalChars += len(block.ToolUse.Input)
				}
			case completion.BlockToolResult:
				if block.ToolResult != nil {
					totalChars += len(completion.Message{Content: block.ToolResult.Content}.TextContent())
				}
			}
		}
	}

	approxTokens := totalChars / 4
	threshold := int(float64(info.ContextWindow) * 0.8)
	if approxTokens > threshold {
		pct := int(float64(approxTokens) / float64(info.ContextWindow) * 100)
		l.emitter.Emit(EventWarning, map[string]interface{}{
			"message": fmt.Sprintf("Context usage at ~%d%% of context window", pct),
		})
	}
}

// fail emits an error event and builds the terminal RunError.
func (l *Loop) fail(kind Kind, cause error) error {
	err := &RunError{Kind: kind, Cause: cause}
	l.emitter.Emit(EventError, map[string]interface{}{
		"kind":  string(kind),
		"error": err.Error(),
	})
	return err
}

// normalizeToolUseIDs backfills missing tool_use IDs so result correlation
// stays bijective. The provider's message is copied, never mutated.
func normalizeToolUseIDs(msg completion.Message) completion.Message {
	out := msg
	out.Content = make([]completion.ContentBlock, len(msg.Content))
	copy(out.Content, msg.Content)
	for i, block := range out.Content {
		if block.Kind == completion.BlockToolUse && block.ToolUse != nil && block.ToolUse.ID == "" {
			use := *block.ToolUse
			use.ID = "toolu_" + uuid.New().String()[:8]
			out.Content[i].ToolUse = &use
		}
	}
	return out
}

// validateInitial checks the run preconditions: a loop cannot usefully
// start on an empty conversation or a dangling assistant turn.
func validateInitial(initial []completion.Message) error {
	if len(initial) == 0 {
		return &completion.ConfigurationError{SDKError: completion.SDKError{
			Message: "initial messages must not be empty",
		}}
	}
	if initial[len(initial)-1].Role != completion.RoleUser {
		return &completion.ConfigurationError{SDKError: completion.SDKError{
			Message: "initial messages must end with a user message",
		}}
	}
	return nil
}
