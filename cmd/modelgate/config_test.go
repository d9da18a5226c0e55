package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/config"
)

type fakeFlags map[string]bool

func (f fakeFlags) IsSet(name string) bool { return f[name] }

func TestApplyServeFlagsOnlyOverridesSetFlags(t *testing.T) {
	cfg := config.Default()
	capacity = 7
	mode = "inline"
	workTimeout = 0
	engineURL = "http://ignored"

	applyServeFlags(fakeFlags{"capacity": true, "mode": true, "work-timeout": true}, cfg)

	if cfg.Capacity != 7 || cfg.Mode != "inline" {
		t.Fatalf("flags not applied: capacity=%d mode=%s", cfg.Capacity, cfg.Mode)
	}
	if cfg.WorkTimeout != 0 {
		t.Fatalf("explicit zero work timeout not applied: %s", cfg.WorkTimeout.Std())
	}
	if cfg.Engine.URL != "" {
		t.Fatalf("unset flag overrode config: %q", cfg.Engine.URL)
	}
	if cfg.ServerAddress != config.DefaultServerAddress {
		t.Fatalf("unset flag overrode server address: %q", cfg.ServerAddress)
	}
}

func TestPrintProfile(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Capacity = 10
	profile, err := admission.NewProfile(3*time.Second, map[string]time.Duration{
		"gpt2":   time.Second,
		"hidden": time.Minute,
	})
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}

	var buf bytes.Buffer
	printProfile(&buf, cfg, profile, []string{"gpt2", "meta-llama/Llama-3.2-3B-Instruct"})
	out := buf.String()

	for _, want := range []string{
		"default 3s",
		"meta-llama/Llama-3.2-3B-Instruct",
		"3s (default)",
		"hidden",
		"(not served)",
		"waits up to 10s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
