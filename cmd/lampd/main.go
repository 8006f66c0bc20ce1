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

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/lampslot/internal/audit"
	"github.com/joao-fontenele/lampslot/internal/cache"
	"github.com/joao-fontenele/lampslot/internal/clock"
	"github.com/joao-fontenele/lampslot/internal/config"
	"github.com/joao-fontenele/lampslot/internal/customers"
	"github.com/joao-fontenele/lampslot/internal/httpx"
	"github.com/joao-fontenele/lampslot/internal/messaging"
	"github.com/joao-fontenele/lampslot/internal/orders"
	"github.com/joao-fontenele/lampslot/internal/slots"
	"github.com/joao-fontenele/lampslot/internal/telemetry"
	"github.com/joao-fontenele/lampslot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("lampd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsHandler http.Handler
	if cfg.OTelEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTelEndpoint, cfg.ServiceName, cfg.ServiceVersion)
		if err != nil {
			return err
		}
		defer func() { _ = shutdownTracer(context.Background()) }()

		handler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
		if err != nil {
			return err
		}
		defer func() { _ = shutdownMeter(context.Background()) }()
		metricsHandler = handler

		if err := runtime.Start(); err != nil {
			logger.Warn("runtime metrics unavailable", "error", err)
		}
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return err
	}

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL, cfg.PostgresSchema)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var orderCache orders.OrderCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		orderCache = cache.NewOrders(rdb, cfg.ReceiptCacheTTL)
		logger.Info("receipt cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ReceiptCacheTTL.String())
	}

	var events, printJobs orders.Publisher
	if cfg.KafkaEnabled() {
		eventProducer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicOrders)
		defer func() { _ = eventProducer.Close() }()
		printProducer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrint)
		defer func() { _ = printProducer.Close() }()
		events, printJobs = eventProducer, printProducer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events and print jobs are disabled")
	}

	sink := audit.NewSink(db, logger)
	clk := clock.System{}

	def, lo, hi := cfg.LockBounds()
	slotRepo := slots.NewSlotRepository(db)
	slotSvc := slots.NewService(slotRepo, sink, metrics, clk, slots.LockLimits{Default: def, Min: lo, Max: hi}, logger)

	customerRepo := customers.NewCustomerRepository(db)
	customerSvc := customers.NewService(customerRepo, sink, logger)

	engine := orders.NewEngine(orders.Deps{
		Store:     orders.NewOrderRepository(db, sink),
		Slots:     slotRepo,
		Releaser:  slotSvc,
		Customers: customerSvc,
		Audit:     sink,
		Events:    events,
		PrintJobs: printJobs,
		Cache:     orderCache,
		Metrics:   metrics,
		Clock:     clk,
		Temple: orders.Temple{
			Name:    cfg.TempleName,
			Address: cfg.TempleAddress,
			Phone:   cfg.TemplePhone,
		},
		Logger: logger,
	})

	router := httpx.NewRouter(logger, db,
		slots.NewHandler(slotSvc, logger),
		customers.NewHandler(customerSvc, logger),
		orders.NewHandler(engine, logger),
	)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(router, cfg.ServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting lampd", "addr", cfg.HTTPAddr, "version", cfg.ServiceVersion)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.SweepInterval > 0 {
		sweeper := worker.NewSweeper(slotSvc, cfg.SweepInterval, logger)
		g.Go(func() error { return sweeper.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
