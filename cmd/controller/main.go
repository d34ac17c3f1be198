// Package main is the entry point for the hirelane API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hirelane/internal/auth"
	"hirelane/internal/config"
	"hirelane/internal/controller"
	"hirelane/internal/jobs"
	"hirelane/internal/logger"
	"hirelane/internal/observability"
	"hirelane/internal/store/postgres"
	"hirelane/internal/workflow"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: hirelane.yaml in current directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	fatal := func(msg string, err error) {
		log.Error(msg, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer store.Close()

	if *migrateFlag {
		log.Info("running database migrations")
		if err := postgres.Migrate(store.DB()); err != nil {
			fatal("migration failed", err)
		}
		version, dirty, err := postgres.SchemaVersion(store.DB())
		if err != nil {
			fatal("failed to read schema version", err)
		}
		log.Info("migrations completed", "version", version, "dirty", dirty)
	}

	shutdownTracer, err := observability.InitTracer(ctx, "hirelane-controller", cfg.OTELEndpoint)
	if err != nil {
		fatal("failed to init tracing", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("failed to shut down tracer", "error", err)
		}
	}()

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		fatal("failed to init metrics", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Error("failed to shut down metrics", "error", err)
		}
	}()

	workflowMetrics, err := observability.NewWorkflowMetrics()
	if err != nil {
		fatal("failed to register workflow metrics", err)
	}
	if err := observability.RegisterActiveJobsGauge(store.CountActiveJobs); err != nil {
		log.Warn("failed to register active jobs gauge", "error", err)
	}

	otp := auth.NewOTPService(store, auth.LogSender{Logger: log}, auth.OTPConfig{
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		FixedCode:   cfg.OTPFixedCode,
	}, log)
	if cfg.OTPFixedCode != "" {
		log.Warn("OTP fixed code is set; every login accepts it")
	}

	pages := jobs.Config{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize}
	deps := controller.Deps{
		DB:   store,
		Auth: auth.NewService(store, otp, log),
		Jobs: jobs.NewService(store, pages, workflowMetrics, log),
		Workflow: workflow.New(store, workflow.Config{
			StrictTransitions: cfg.StrictTransitions,
			DefaultPageSize:   cfg.DefaultPageSize,
			MaxPageSize:       cfg.MaxPageSize,
		}, workflowMetrics, log),
		Metrics:        metricsHandler,
		Logger:         log,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, deps)

	go func() {
		log.Info("hirelane API starting", "addr", addr, "strict_transitions", cfg.StrictTransitions)
		if err := srv.Run(ctx); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal("server forced to shut down", err)
	}
	log.Info("server exited properly")
}
