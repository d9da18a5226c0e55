package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool
)

// serve flags override the matching config file keys when set.
var (
	addr         string
	readTimeout  time.Duration
	capacity     int
	mode         string
	workers      int
	workTimeout  time.Duration
	maxQueueWait time.Duration
	defaultModel string
	engineKind   string
	engineURL    string
	engineAPIKey string
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/modelgate/config.yaml)",
			Sources:     cli.EnvVars("MODELGATE_CONFIG"),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read header timeout",
			Destination: &readTimeout,
		},
		&cli.IntFlag{
			Name:        "capacity",
			Aliases:     []string{"c"},
			Usage:       "admission queue capacity",
			Destination: &capacity,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "admission mode (dispatch, inline)",
			Destination: &mode,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"w"},
			Usage:       "dispatch workers",
			Destination: &workers,
		},
		&cli.DurationFlag{
			Name:        "work-timeout",
			Usage:       "deadline for each inference call (0 disables)",
			Destination: &workTimeout,
		},
		&cli.DurationFlag{
			Name:        "max-queue-wait",
			Usage:       "evict queued requests older than this (0 disables)",
			Destination: &maxQueueWait,
		},
		&cli.StringFlag{
			Name:        "default-model",
			Usage:       "model used when a request names none",
			Destination: &defaultModel,
		},
		&cli.StringFlag{
			Name:        "engine",
			Usage:       "inference engine (simulated, remote)",
			Destination: &engineKind,
		},
		&cli.StringFlag{
			Name:        "engine-url",
			Usage:       "base URL of the upstream OpenAI-compatible server",
			Destination: &engineURL,
		},
		&cli.StringFlag{
			Name:        "engine-api-key",
			Usage:       "bearer token for the upstream server",
			Sources:     cli.EnvVars("MODELGATE_ENGINE_API_KEY"),
			Destination: &engineAPIKey,
		},
	}
}
