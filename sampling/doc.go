// Package sampling implements the agentic sampling loop: the conversation
// state machine by which a protocol endpoint drives repeated
// generate / invoke-tool / continue cycles to completion.
//
// Each run alternates between two states. Awaiting-Completion sends the
// conversation and tool definitions to a completion backend and appends the
// returned assistant message. Executing-Tools dispatches every tool_use
// block of that message (in parallel when there are several), waits for all
// of them, and appends one user message of tool_result blocks, correlated
// by call ID in request order. An end_turn stop signal terminates the run
// with the final assistant text; turn limits, cancellation, unknown tools,
// and provider faults terminate it with a RunError.
//
// Tool execution failures are not loop failures: they are folded back into
// the conversation as error-flagged results for the model to react to.
// Protocol-shape violations, by contrast, are always fatal.
//
// # Quick Start
//
//	provider := completion.NewAnthropicProvider(os.Getenv("ANTHROPIC_API_KEY"))
//	loop := sampling.New(provider, sampling.Config{
//	    Model: "claude-opus-4-6",
//	    Tools: []sampling.Tool{addTool},
//	})
//	defer loop.Close()
//
//	answer, err := loop.Run(ctx, []completion.Message{
//	    completion.UserMessage("What is 2+2?"),
//	})
//
// Hosts that want observability consume loop.Events(); hosts that want a
// durable record attach a Transcript. Neither affects the run's outcome.
package sampling
