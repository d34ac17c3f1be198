// Package main is the entry point for the hirelane event relay.
// The relay drains the event outbox into RabbitMQ, or into the log when no
// broker is configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hirelane/internal/config"
	"hirelane/internal/logger"
	"hirelane/internal/observability"
	"hirelane/internal/relay"
	"hirelane/internal/store/postgres"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: hirelane.yaml in current directory)")
	metricsAddr := flag.String("metrics-addr", ":6162", "Address of the relay metrics endpoint")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer store.Close()

	shutdownTracer, err := observability.InitTracer(ctx, "hirelane-relay", cfg.OTELEndpoint)
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

	relayMetrics, err := observability.NewRelayMetrics()
	if err != nil {
		fatal("failed to register relay metrics", err)
	}

	// Read on scrape only.
	meter := otel.Meter("hirelane-relay")
	_, err = meter.Int64ObservableGauge("hirelane.outbox.depth",
		metric.WithDescription("Events waiting in the outbox"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := store.CountEvents(ctx)
			if err != nil {
				log.Warn("failed to count outbox depth", "error", err)
				return nil
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Warn("failed to register outbox depth metric", "error", err)
	}

	var publisher relay.Publisher = relay.LogPublisher{Logger: log}
	if cfg.RabbitMQURL != "" {
		rabbit, err := relay.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			fatal("failed to connect publisher", err)
		}
		defer rabbit.Close()
		publisher = rabbit
		log.Info("publishing to RabbitMQ", "exchange", cfg.EventsExchange)
	} else {
		log.Info("no broker configured, publishing to the log")
	}

	hostname, _ := os.Hostname()
	agent := relay.New(store, publisher, relay.AgentConfig{
		ID:                hostname,
		Concurrency:       cfg.RelayConcurrency,
		PollInterval:      cfg.RelayPollInterval,
		MaxBackoff:        cfg.RelayMaxBackoff,
		BatchSize:         cfg.RelayBatchSize,
		MaxAttempts:       cfg.RelayMaxAttempts,
		VisibilityTimeout: cfg.RelayVisibilityTimeout,
	}, relayMetrics, log)

	go agent.Run(ctx)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		log.Info("relay metrics listening", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down relay")
	cancel()

	<-agent.Done()
}
