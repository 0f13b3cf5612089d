package completion

import "context"

// Provider is the interface every model backend must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// Complete sends a blocking request and returns the full result.
	Complete(ctx context.Context, req Request) (*Result, error)
}

// Optional interfaces that providers may implement.

// Closer is implemented by providers that hold resources.
type Closer interface {
	Close() error
}

// ToolSupporter is implemented by providers that can report whether they
// support tool-augmented completion. Callers should verify this before
// starting a tool loop; the loop itself assumes the capability exists.
type ToolSupporter interface {
	SupportsTools() bool
}
