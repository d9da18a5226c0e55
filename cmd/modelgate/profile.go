package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/config"
)

func profileCmd() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "Print processing-time estimates and the queue's worst-case wait",
		ArgsUsage: "[model...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			profile, err := fileConfig.BuildProfile()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			models := cmd.Args().Slice()
			if len(models) == 0 {
				models = fileConfig.SupportedModels
			}
			printProfile(os.Stdout, fileConfig, profile, models)
			return nil
		},
	}
}

func printProfile(w io.Writer, cfg *config.Config, profile *admission.Profile, models []string) {
	_, _ = fmt.Fprintf(w, "Processing-time profile (default %s):\n\n", profile.Default())
	for _, m := range models {
		note := ""
		if !slices.Contains(profile.Classes(), m) {
			note = " (default)"
		}
		_, _ = fmt.Fprintf(w, "  %-45s %8s%s\n", m, profile.Estimate(m), note)
	}
	for _, class := range profile.Classes() {
		if !slices.Contains(models, class) {
			_, _ = fmt.Fprintf(w, "  %-45s %8s (not served)\n", class, profile.Estimate(class))
		}
	}

	worst := time.Duration(cfg.Capacity) * profile.Estimate(cfg.DefaultModel)
	_, _ = fmt.Fprintf(w, "\nCapacity %d, mode %s: a full queue of %s requests waits up to %s.\n",
		cfg.Capacity, cfg.Mode, cfg.DefaultModel, worst)
}
