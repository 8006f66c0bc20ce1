package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/lampslot/internal/config"
	"github.com/joao-fontenele/lampslot/internal/messaging"
	"github.com/joao-fontenele/lampslot/internal/telemetry"
	"github.com/joao-fontenele/lampslot/internal/worker"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	if err := run(cfg, logger); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if !cfg.KafkaEnabled() {
		return errors.New("KAFKA_BROKERS environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTelEndpoint, cfg.ServiceName+"-worker", cfg.ServiceVersion)
		if err != nil {
			return err
		}
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	orderEvents := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicOrders, cfg.KafkaGroupID, logger)
	defer func() { _ = orderEvents.Close() }()
	printQueue := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicPrint, cfg.KafkaGroupID+"-print", logger)
	defer func() { _ = printQueue.Close() }()

	releases := worker.NewReleaseFollowUp(cfg.APIBaseURL, httpClient, logger)
	spooler := worker.NewPrintSpooler(logger)

	logger.Info("starting worker",
		"brokers", cfg.KafkaBrokers,
		"order_topic", cfg.KafkaTopicOrders,
		"print_topic", cfg.KafkaTopicPrint,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consume(gctx, orderEvents, releases.Handle) })
	g.Go(func() error { return consume(gctx, printQueue, spooler.Handle) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("consumers stopped")
	return nil
}

func consume(ctx context.Context, c *messaging.Consumer, handler messaging.Handler) error {
	err := c.Consume(ctx, handler)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
