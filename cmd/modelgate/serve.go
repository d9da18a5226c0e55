package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/api"
	"github.com/samcharles93/modelgate/internal/inference"
	"github.com/samcharles93/modelgate/internal/logger"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the completions API behind the admission queue",
		Flags: serveFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			cfg := *fileConfig
			applyServeFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: invalid configuration: %v", err), 1)
			}

			profile, err := cfg.BuildProfile()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := admission.NewMetrics(registry)

			controller, err := admission.NewController(cfg.AdmissionConfig(), profile,
				admission.WithLogger(log.With(logger.ComponentKey, "admission")),
				admission.WithMetrics(metrics),
				admission.WithNotifier(admission.Notifiers{
					metrics,
					admission.LogNotifier{Log: log.With(logger.ComponentKey, "completions")},
				}),
			)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			engine, err := inference.New(cfg.InferenceConfig(profile))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = engine.Close() }()

			store := api.NewJobStore(cfg.JobRetention.Std())
			server, err := api.NewServer(api.Options{
				Controller:     controller,
				Engine:         engine,
				Store:          store,
				Models:         cfg.SupportedModels,
				DefaultModel:   cfg.DefaultModel,
				Gatherer:       registry,
				Logger:         log.With(logger.ComponentKey, "api"),
				ProjectName:    cfg.ProjectName,
				ProjectVersion: cfg.ProjectVersion,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			ctx, stop := signal.NotifyContext(ctx, shutdownSignals...)
			defer stop()

			var wg sync.WaitGroup
			wg.Go(func() {
				if err := controller.Run(ctx); err != nil {
					log.Error("admission controller stopped", "error", err)
				}
			})
			wg.Go(func() { store.Run(ctx, 0) })

			e := echo.New()
			e.Logger = logger.ToSlog(log.With(logger.ComponentKey, "http"))
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server",
				"address", cfg.ServerAddress,
				"mode", cfg.Mode,
				"capacity", cfg.Capacity,
				"workers", controller.Config().Workers,
				"engine", cfg.Engine.Kind,
				"default_model", cfg.DefaultModel,
			)
			sc := echo.StartConfig{
				Address: cfg.ServerAddress,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = cfg.ReadTimeout.Std()
					return nil
				},
			}
			err = sc.Start(ctx, e)

			// The server may have failed on its own; stop the rest too.
			stop()
			wg.Wait()
			log.Info("server stopped")
			return err
		},
	}
}
