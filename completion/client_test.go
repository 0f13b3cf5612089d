package completion

import (
	"context"
	"errors"
	"testing"
)

// mockProvider records requests and returns a canned result.
type mockProvider struct {
	name     string
	result   *Result
	err      error
	requests []Request
	closed   bool
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(ctx context.Context, req Request) (*Result, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &Result{
		Provider:   m.name,
		Message:    AssistantMessage("mock response"),
		StopSignal: StopEndTurn,
	}, nil
}

func (m *mockProvider) Close() error {
	m.closed = true
	return nil
}

func TestClientRoutesToExplicitProvider(t *testing.T) {
	a := &mockProvider{name: "a"}
	b := &mockProvider{name: "b"}
	client := NewClient(WithProvider("a", a), WithProvider("b", b), WithDefaultProvider("a"))

	_, err := client.Complete(context.Background(), Request{Provider: "b", Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.requests) != 1 || len(a.requests) != 0 {
		t.Errorf("expected request routed to b, got a=%d b=%d", len(a.requests), len(b.requests))
	}
}

func TestClientSingleProviderBecomesDefault(t *testing.T) {
	only := &mockProvider{name: "only"}
	client := NewClient(WithProvider("only", only))

	_, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(only.requests) != 1 {
		t.Errorf("expected the sole provider used, got %d requests", len(only.requests))
	}
	if only.requests[0].Provider != "only" {
		t.Errorf("expected provider stamped on request, got %q", only.requests[0].Provider)
	}
}

func TestClientInfersProviderFromCatalog(t *testing.T) {
	anthropic := &mockProvider{name: "anthropic"}
	openai := &mockProvider{name: "openai"}
	client := NewClient(WithProvider("anthropic", anthropic), WithProvider("openai", openai))

	_, err := client.Complete(context.Background(), Request{
		Model:    "claude-opus-4-6",
		Messages: []Message{UserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anthropic.requests) != 1 {
		t.Errorf("expected catalog inference to pick anthropic, got %d requests", len(anthropic.requests))
	}
}

func TestClientNoProviderConfigured(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	var cfg *ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientUnknownProvider(t *testing.T) {
	client := NewClient(WithProvider("a", &mockProvider{name: "a"}))
	_, err := client.Complete(context.Background(), Request{Provider: "ghost", Messages: []Message{UserMessage("hi")}})
	var cfg *ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(label string) Middleware {
		return func(ctx context.Context, req Request, next func(context.Context, Request) (*Result, error)) (*Result, error) {
			order = append(order, label+":before")
			result, err := next(ctx, req)
			order = append(order, label+":after")
			return result, err
		}
	}

	client := NewClient(
		WithProvider("a", &mockProvider{name: "a"}),
		WithMiddleware(mw("first"), mw("second")),
	)

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first:before", "second:before", "second:after", "first:after"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestClientMiddlewareCanRewriteRequest(t *testing.T) {
	provider := &mockProvider{name: "a"}
	stamp := func(ctx context.Context, req Request, next func(context.Context, Request) (*Result, error)) (*Result, error) {
		req.Model = "claude-opus-4-6"
		return next(ctx, req)
	}
	client := NewClient(WithProvider("a", provider), WithMiddleware(stamp))

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.requests[0].Model != "claude-opus-4-6" {
		t.Errorf("expected middleware rewrite visible to provider, got %q", provider.requests[0].Model)
	}
}

func TestClientClose(t *testing.T) {
	a := &mockProvider{name: "a"}
	b := &mockProvider{name: "b"}
	client := NewClient(WithProvider("a", a), WithProvider("b", b))

	if err := client.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("expected all providers closed")
	}
}

func TestRegisterProviderSetsDefault(t *testing.T) {
	client := NewClient()
	p := &mockProvider{name: "late"}
	client.RegisterProvider("late", p)

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.requests) != 1 {
		t.Errorf("expected late-registered provider to become default, got %d requests", len(p.requests))
	}
}
