package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider installs a Prometheus-backed MeterProvider globally.
// It returns the /metrics handler and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

const (
	LockAcquired     = "acquired"
	LockContended    = "contended"
	LockSoldOut      = "sold"
	LockFailed       = "failed"
	LockNotFound     = "not_found"
	meterName        = "github.com/joao-fontenele/lampslot"
	attrOutcome      = "outcome"
	attrStatus       = "status"
	attrSweepTrigger = "trigger"
)

// Metrics holds the domain instruments. A nil *Metrics records nothing.
type Metrics struct {
	lockAttempts     otelmetric.Int64Counter
	locksSwept       otelmetric.Int64Counter
	orderTransitions otelmetric.Int64Counter
}

// NewMetrics builds instruments from the global MeterProvider, which is a
// no-op until InitMeterProvider runs.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	lockAttempts, err := meter.Int64Counter("lamp_lock_attempts_total",
		otelmetric.WithDescription("Slot lock attempts by outcome"))
	if err != nil {
		return nil, err
	}

	locksSwept, err := meter.Int64Counter("lamp_locks_swept_total",
		otelmetric.WithDescription("Expired slot locks returned to AVAILABLE"))
	if err != nil {
		return nil, err
	}

	orderTransitions, err := meter.Int64Counter("lamp_order_transitions_total",
		otelmetric.WithDescription("Orders entering a status"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		lockAttempts:     lockAttempts,
		locksSwept:       locksSwept,
		orderTransitions: orderTransitions,
	}, nil
}

func (m *Metrics) LockAttempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.lockAttempts.Add(ctx, 1, otelmetric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

func (m *Metrics) LocksSwept(ctx context.Context, trigger string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.locksSwept.Add(ctx, n, otelmetric.WithAttributes(attribute.String(attrSweepTrigger, trigger)))
}

func (m *Metrics) OrderTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.orderTransitions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String(attrStatus, status)))
}
