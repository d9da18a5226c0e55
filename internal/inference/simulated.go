package inference

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

var simulatedVocabulary = []string{
	"the", "queue", "model", "request", "slot", "worker", "answer", "token",
	"latency", "gate", "fair", "order", "first", "served", "capacity", "wait",
}

// SimulatedEngine stands in for a real backend during development and load
// tests. It holds each request for the latency of its model and returns
// deterministic text derived from the prompt.
type SimulatedEngine struct {
	latency func(model string) time.Duration
}

// NewSimulatedEngine returns an engine that waits latency(model) per request.
// A nil latency function answers immediately.
func NewSimulatedEngine(latency func(model string) time.Duration) *SimulatedEngine {
	if latency == nil {
		latency = func(string) time.Duration { return 0 }
	}
	return &SimulatedEngine{latency: latency}
}

func (e *SimulatedEngine) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	start := time.Now()
	if d := e.latency(req.Model); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, newError(req.Model, 0, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return nil, newError(req.Model, 0, err)
	}

	text := simulatedText(req.Model, req.Prompt, req.MaxTokens)
	return &Result{
		Text: text,
		Stats: Stats{
			PromptTokens:     CountWords(req.Prompt),
			CompletionTokens: CountWords(text),
			Duration:         time.Since(start),
		},
	}, nil
}

func (e *SimulatedEngine) Close() error {
	return nil
}

func simulatedText(model, prompt string, words int) string {
	if words <= 0 {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(model))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(prompt))
	seed := h.Sum64()

	out := make([]string, words)
	for i := range out {
		// xorshift keeps the sequence deterministic per (model, prompt).
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		out[i] = simulatedVocabulary[seed%uint64(len(simulatedVocabulary))]
	}
	return strings.Join(out, " ")
}
