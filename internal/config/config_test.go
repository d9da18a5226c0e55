package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/inference"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "capacity: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, "dispatch", cfg.Mode)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DefaultServerAddress, cfg.ServerAddress)
	assert.Equal(t, DefaultWorkTimeout, cfg.WorkTimeout.Std())
	assert.Equal(t, DefaultWorkTimeout, cfg.Engine.Timeout.Std())
	assert.Equal(t, "gpt2", cfg.DefaultModel)
	assert.Equal(t, DefaultSupportedModels, cfg.SupportedModels)
	assert.Equal(t, admission.DefaultProcessingTime, cfg.Profile.Default.Std())
	assert.Equal(t, inference.KindSimulated, cfg.Engine.Kind)
	assert.Equal(t, "pretty", cfg.LogFormat)
}

func TestLoadFullFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
project_name: gate
server_address: 0.0.0.0:9000
read_timeout: 10s
capacity: 8
mode: inline
work_timeout: 45s
max_queue_wait: 2m
default_model: fast
supported_models: [fast, slow]
profile:
  default: 4s
  classes:
    fast: 1s
    slow: 1m30s
engine:
  kind: remote
  url: http://127.0.0.1:8000
  api_key: secret
log_format: json
`))
	require.NoError(t, err)

	want := admission.Config{
		Capacity:     8,
		Mode:         admission.ModeInline,
		Workers:      1,
		WorkTimeout:  45 * time.Second,
		MaxQueueWait: 2 * time.Minute,
	}
	if diff := cmp.Diff(want, cfg.AdmissionConfig()); diff != "" {
		t.Fatalf("admission config mismatch (-want +got):\n%s", diff)
	}

	profile, err := cfg.BuildProfile()
	require.NoError(t, err)
	assert.Equal(t, time.Second, profile.Estimate("fast"))
	assert.Equal(t, 90*time.Second, profile.Estimate("slow"))
	assert.Equal(t, 4*time.Second, profile.Estimate("other"))

	ic := cfg.InferenceConfig(profile)
	assert.Equal(t, "remote", ic.Kind)
	assert.Equal(t, "http://127.0.0.1:8000", ic.URL)
	assert.Equal(t, "secret", ic.APIKey)
	assert.Equal(t, 45*time.Second, ic.Timeout)
	assert.Equal(t, 90*time.Second, ic.Latency("slow"), "simulated latency follows the profile")
}

func TestFixedSimulatedLatency(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("engine:\n  latency: 250ms\n"))
	require.NoError(t, err)
	profile, err := cfg.BuildProfile()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.InferenceConfig(profile).Latency("gpt2"))
}

func TestValidateCollectsErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
capacity: -1
mode: lifo
work_timeout: -1s
default_model: gpt5
engine:
  kind: remote
profile:
  classes:
    gpt2: -2s
`))
	require.Error(t, err)
	for _, want := range []string{
		"capacity must be at least 1",
		"unknown admission mode",
		"work_timeout must not be negative",
		`default_model "gpt5"`,
		"engine.url is required",
		`profile.classes["gpt2"]`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidateWorkersAgainstCapacity(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("capacity: 2\nworkers: 3\n"))
	require.ErrorContains(t, err, "workers (3) must not exceed capacity (2)")

	_, err = Parse([]byte("capacity: 2\nworkers: 3\nmode: inline\n"))
	require.NoError(t, err, "inline mode ignores workers")
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("work_timeout: soon\n"))
	require.ErrorContains(t, err, `invalid duration "soon"`)
}

func TestLoadOptional(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerAddress, cfg.ServerAddress)

	_, err = LoadOptional(writeConfig(t, "capacity: [\n"))
	require.Error(t, err)
}
