// Package completion provides a provider-agnostic completion client for
// tool-augmented sampling.
//
// # Architecture
//
// The package has three layers:
//
//   - Shared types: Message, ContentBlock (a closed tagged union over text,
//     tool_use, and tool_result), ToolDefinition, StopSignal, Request, Result.
//   - Provider utilities: the error hierarchy with retryability
//     classification, and a generic Retry with exponential backoff.
//   - Core client: Client with provider routing by name or model catalog,
//     plus middleware.
//
// # Quick Start
//
// Using the Client with a native Anthropic backend:
//
//	provider := completion.NewAnthropicProvider(os.Getenv("ANTHROPIC_API_KEY"))
//	client := completion.NewClient(completion.WithProvider("anthropic", provider))
//
//	result, _ := client.Complete(ctx, completion.Request{
//	    Model:    "claude-opus-4-6",
//	    Messages: []completion.Message{completion.UserMessage("Hello")},
//	})
//	fmt.Println(result.Text())
//
// # Providers
//
// Two backends ship with the package: AnthropicProvider wraps the official
// SDK with native tool_use blocks, and GollmProvider wraps gollm for
// backends without a dedicated adapter. Both implement Provider and the
// optional ToolSupporter, which callers should consult before driving a
// tool loop against a provider.
//
// # Model Catalog
//
// A built-in catalog of known models helps select valid model identifiers
// and check tool support up front:
//
//	info := completion.GetModelInfo("claude-opus-4-6")
//	ok := completion.SupportsTools("gpt-5.2")
package completion
