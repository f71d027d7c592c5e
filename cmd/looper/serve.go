package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	periodic "github.com/Swind/go-periodic-task"
	"github.com/Swind/go-periodic-task/core"
	"github.com/Swind/go-periodic-task/internal/config"
	"github.com/Swind/go-periodic-task/internal/control"
	"github.com/Swind/go-periodic-task/internal/logger"
	promexp "github.com/Swind/go-periodic-task/observability/prometheus"
)

const shutdownTimeout = 10 * time.Second

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run a periodic task with the HTTP control API until interrupted",

		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   ".env files to load before reading LOOPER_* variables",
			},
		},

		Action: ServeAction,
	}
}

func ServeAction(c *cli.Context) error {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	log, err := logger.Setup(cfg.LogLevel, cfg.LogFormat, c.App.ErrWriter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	return nil
}

// serve runs the task, the snapshot poller and the HTTP server until ctx is done.
func serve(ctx context.Context, cfg config.Config, log core.Logger) error {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := promexp.NewMetricsExporter(cfg.MetricsNamespace, reg, promexp.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("create metrics exporter: %w", err)
	}
	poller, err := promexp.NewSnapshotPoller(cfg.MetricsNamespace, reg, cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("create snapshot poller: %w", err)
	}
	poller.SetLogger(log)

	group := periodic.NewGroup("looper",
		periodic.WithLogger(log),
		periodic.WithMetrics(exporter),
		periodic.WithHistoryCapacity(cfg.HistorySize))
	defer group.Stop()

	opts := []periodic.Option{periodic.WithCatchUp(cfg.CatchUp)}
	if cfg.StartPaused {
		opts = append(opts, periodic.WithStartPaused())
	}

	routine := cfg.RoutineDuration
	task, err := group.Add(cfg.TaskName, cfg.Period, func() {
		log.Info("tick", core.F("task", cfg.TaskName))
		if routine > 0 {
			time.Sleep(routine)
		}
	}, opts...)
	if err != nil {
		return fmt.Errorf("start task: %w", err)
	}

	poller.AddTask(cfg.TaskName, task)
	poller.Start(ctx)
	defer poller.Stop()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: control.NewRouter(task,
			control.WithLogger(log),
			control.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("control API listening", core.F("addr", cfg.HTTPAddr), core.F("task", cfg.TaskName))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", core.F("task", cfg.TaskName))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
