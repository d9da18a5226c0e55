package inference

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindSimulated = "simulated"
	KindRemote    = "remote"
)

// Config selects and configures an Engine.
type Config struct {
	Kind    string
	URL     string
	APIKey  string
	Timeout time.Duration
	// Latency is the per-model delay of the simulated engine.
	Latency func(model string) time.Duration
}

func New(cfg Config) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindSimulated:
		return NewSimulatedEngine(cfg.Latency), nil
	case KindRemote:
		return NewRemoteEngine(RemoteConfig{
			BaseURL: cfg.URL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown engine kind %q (want %q or %q)", cfg.Kind, KindSimulated, KindRemote)
	}
}
