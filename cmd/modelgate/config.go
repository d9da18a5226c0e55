package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modelgate/internal/config"
	"github.com/samcharles93/modelgate/internal/logger"
)

// fileConfig is loaded once by setup and read by the sub-commands.
var fileConfig = config.Default()

// setup loads the config file and installs the logger into the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := strings.TrimSpace(configFile)
	var err error
	if path != "" {
		fileConfig, err = config.Load(path)
	} else {
		path = config.DefaultPath()
		fileConfig, err = config.LoadOptional(path)
	}
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: config %s: %v", path, err), 1)
	}

	level, format := fileConfig.LogLevel, fileConfig.LogFormat
	if cmd.IsSet("log-level") {
		level = logLevel
	}
	if cmd.IsSet("log-format") {
		format = logFormat
	}
	if debug {
		level = "debug"
	}
	log, err := logger.Setup(os.Stderr, format, level)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return logger.WithContext(ctx, log), nil
}

// isSetter is the part of *cli.Command that applyServeFlags needs.
type isSetter interface {
	IsSet(name string) bool
}

// applyServeFlags copies explicitly set serve flags over cfg.
func applyServeFlags(c isSetter, cfg *config.Config) {
	if c.IsSet("addr") {
		cfg.ServerAddress = addr
	}
	if c.IsSet("read-timeout") {
		cfg.ReadTimeout = config.Duration(readTimeout)
	}
	if c.IsSet("capacity") {
		cfg.Capacity = capacity
	}
	if c.IsSet("mode") {
		cfg.Mode = mode
	}
	if c.IsSet("workers") {
		cfg.Workers = workers
	}
	if c.IsSet("work-timeout") {
		cfg.WorkTimeout = config.Duration(workTimeout)
	}
	if c.IsSet("max-queue-wait") {
		cfg.MaxQueueWait = config.Duration(maxQueueWait)
	}
	if c.IsSet("default-model") {
		cfg.DefaultModel = defaultModel
	}
	if c.IsSet("engine") {
		cfg.Engine.Kind = engineKind
	}
	if c.IsSet("engine-url") {
		cfg.Engine.URL = engineURL
	}
	if c.IsSet("engine-api-key") {
		cfg.Engine.APIKey = engineAPIKey
	}
}
