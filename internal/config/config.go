// Package config loads the modelgate YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/inference"
)

const (
	DefaultServerAddress  = "127.0.0.1:8003"
	DefaultReadTimeout    = 30 * time.Second
	DefaultWorkTimeout    = 5 * time.Minute
	DefaultJobRetention   = 10 * time.Minute
	DefaultProjectName    = "AI Model API"
	DefaultProjectVersion = "1.0.0"
)

// DefaultSupportedModels is the model list used when none is configured.
var DefaultSupportedModels = []string{
	"gpt2",
	"nvidia/Llama-3.1-Nemotron-70B-Instruct-HF",
	"meta-llama/Llama-3.2-3B-Instruct",
	"meta-llama/Llama-3.2-11B-Vision-Instruct",
}

type Config struct {
	ProjectName    string   `yaml:"project_name"`
	ProjectVersion string   `yaml:"project_version"`
	ServerAddress  string   `yaml:"server_address"`
	ReadTimeout    Duration `yaml:"read_timeout"`

	Capacity     int      `yaml:"capacity"`
	Mode         string   `yaml:"mode"`
	Workers      int      `yaml:"workers"`
	WorkTimeout  Duration `yaml:"work_timeout"`
	MaxQueueWait Duration `yaml:"max_queue_wait"`
	JobRetention Duration `yaml:"job_retention"`

	DefaultModel    string   `yaml:"default_model"`
	SupportedModels []string `yaml:"supported_models"`

	Profile ProfileConfig `yaml:"profile"`
	Engine  EngineConfig  `yaml:"engine"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type ProfileConfig struct {
	Default Duration            `yaml:"default"`
	Classes map[string]Duration `yaml:"classes"`
}

type EngineConfig struct {
	Kind    string   `yaml:"kind"`
	URL     string   `yaml:"url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
	// Latency fixes the simulated engine's delay. Zero makes it take as long
	// as the profile estimates for the model.
	Latency Duration `yaml:"latency"`
}

// Duration reads YAML values such as "3s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultPath is os.UserConfigDir()/modelgate/config.yaml, or "" when the
// user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "modelgate", "config.yaml")
}

// Load reads path, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// LoadOptional behaves like Load but returns the defaults when the file
// does not exist.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) ApplyDefaults() {
	if c.ProjectName == "" {
		c.ProjectName = DefaultProjectName
	}
	if c.ProjectVersion == "" {
		c.ProjectVersion = DefaultProjectVersion
	}
	if c.ServerAddress == "" {
		c.ServerAddress = DefaultServerAddress
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Capacity == 0 {
		c.Capacity = admission.DefaultCapacity
	}
	if c.Mode == "" {
		c.Mode = string(admission.ModeDispatch)
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.WorkTimeout == 0 {
		c.WorkTimeout = Duration(DefaultWorkTimeout)
	}
	if c.JobRetention == 0 {
		c.JobRetention = Duration(DefaultJobRetention)
	}
	if len(c.SupportedModels) == 0 {
		c.SupportedModels = slices.Clone(DefaultSupportedModels)
	}
	if c.DefaultModel == "" {
		c.DefaultModel = c.SupportedModels[0]
	}
	if c.Profile.Default == 0 {
		c.Profile.Default = Duration(admission.DefaultProcessingTime)
	}
	if c.Engine.Kind == "" {
		c.Engine.Kind = inference.KindSimulated
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = c.WorkTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be at least 1, got %d", c.Capacity))
	}
	mode, err := admission.ParseMode(c.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("mode: %w", err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	} else if mode == admission.ModeDispatch && c.Workers > c.Capacity {
		errs = append(errs, fmt.Errorf("workers (%d) must not exceed capacity (%d)", c.Workers, c.Capacity))
	}
	for name, d := range map[string]Duration{
		"read_timeout":   c.ReadTimeout,
		"work_timeout":   c.WorkTimeout,
		"max_queue_wait": c.MaxQueueWait,
		"job_retention":  c.JobRetention,
		"engine.timeout": c.Engine.Timeout,
		"engine.latency": c.Engine.Latency,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d.Std()))
		}
	}
	if !slices.Contains(c.SupportedModels, c.DefaultModel) {
		errs = append(errs, fmt.Errorf("default_model %q is not in supported_models", c.DefaultModel))
	}
	if c.Profile.Default < 0 {
		errs = append(errs, fmt.Errorf("profile.default must not be negative, got %s", c.Profile.Default.Std()))
	}
	for class, d := range c.Profile.Classes {
		if d < 0 {
			errs = append(errs, fmt.Errorf("profile.classes[%q] must not be negative, got %s", class, d.Std()))
		}
	}
	switch c.Engine.Kind {
	case inference.KindSimulated:
	case inference.KindRemote:
		if c.Engine.URL == "" {
			errs = append(errs, errors.New("engine.url is required for the remote engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("engine.kind must be %q or %q, got %q", inference.KindSimulated, inference.KindRemote, c.Engine.Kind))
	}
	return errors.Join(errs...)
}

// AdmissionConfig converts the file settings into controller settings.
func (c *Config) AdmissionConfig() admission.Config {
	return admission.Config{
		Capacity:     c.Capacity,
		Mode:         admission.Mode(c.Mode),
		Workers:      c.Workers,
		WorkTimeout:  c.WorkTimeout.Std(),
		MaxQueueWait: c.MaxQueueWait.Std(),
	}
}

func (c *Config) BuildProfile() (*admission.Profile, error) {
	classes := make(map[string]time.Duration, len(c.Profile.Classes))
	for class, d := range c.Profile.Classes {
		classes[class] = d.Std()
	}
	return admission.NewProfile(c.Profile.Default.Std(), classes)
}

// InferenceConfig converts the engine settings. The simulated engine follows
// profile unless a fixed latency is configured.
func (c *Config) InferenceConfig(profile *admission.Profile) inference.Config {
	latency := func(model string) time.Duration { return profile.Estimate(model) }
	if fixed := c.Engine.Latency.Std(); fixed > 0 {
		latency = func(string) time.Duration { return fixed }
	}
	return inference.Config{
		Kind:    c.Engine.Kind,
		URL:     c.Engine.URL,
		APIKey:  c.Engine.APIKey,
		Timeout: c.Engine.Timeout.Std(),
		Latency: latency,
	}
}
