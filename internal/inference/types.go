package inference

import (
	"context"
	"time"
)

// Engine is the model-inference collaborator. modelgate only decides when a
// request may call it; tokenization, decoding and model residency are the
// engine's business.
type Engine interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
	Close() error
}

type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type Result struct {
	Text  string
	Stats Stats
}

type Stats struct {
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
}
