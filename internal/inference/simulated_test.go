package inference

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimulatedEngineDeterministic(t *testing.T) {
	t.Parallel()

	engine := NewSimulatedEngine(nil)
	req := &Request{Model: "gpt2", Prompt: "tell me about queues", MaxTokens: 12}

	a, err := engine.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := engine.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Text != b.Text {
		t.Fatalf("expected deterministic output, got %q and %q", a.Text, b.Text)
	}
	if a.Stats.CompletionTokens != 12 {
		t.Fatalf("expected 12 completion words, got %d", a.Stats.CompletionTokens)
	}
	if a.Stats.PromptTokens != 4 {
		t.Fatalf("expected 4 prompt words, got %d", a.Stats.PromptTokens)
	}
}

func TestSimulatedEngineZeroTokens(t *testing.T) {
	t.Parallel()

	res, err := NewSimulatedEngine(nil).Generate(context.Background(), &Request{Model: "gpt2", Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text, got %q", res.Text)
	}
}

func TestSimulatedEngineLatencyPerModel(t *testing.T) {
	t.Parallel()

	engine := NewSimulatedEngine(func(model string) time.Duration {
		if model == "slow" {
			return time.Hour
		}
		return 0
	})

	if _, err := engine.Generate(context.Background(), &Request{Model: "fast", MaxTokens: 1}); err != nil {
		t.Fatalf("fast model: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := engine.Generate(ctx, &Request{Model: "slow", MaxTokens: 1})
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrInference) {
		t.Fatalf("expected deadline exceeded inference error, got %v", err)
	}
}

func TestNewEngineKinds(t *testing.T) {
	t.Parallel()

	if e, err := New(Config{}); err != nil {
		t.Fatalf("default kind: %v", err)
	} else if _, ok := e.(*SimulatedEngine); !ok {
		t.Fatalf("expected simulated engine by default, got %T", e)
	}
	if e, err := New(Config{Kind: "remote", URL: "http://127.0.0.1:9"}); err != nil {
		t.Fatalf("remote kind: %v", err)
	} else if _, ok := e.(*RemoteEngine); !ok {
		t.Fatalf("expected remote engine, got %T", e)
	}
	if _, err := New(Config{Kind: "remote"}); err == nil {
		t.Fatal("expected error for remote engine without URL")
	}
	if _, err := New(Config{Kind: "gguf"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
