// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "hirelane"

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// WorkflowMetrics are the instruments recorded by the application workflow.
type WorkflowMetrics struct {
	submitted   metric.Int64Counter
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
	views       metric.Int64Counter
}

// NewWorkflowMetrics creates the workflow instruments on the global meter provider.
func NewWorkflowMetrics() (*WorkflowMetrics, error) {
	meter := otel.Meter(meterName)

	submitted, err := meter.Int64Counter("hirelane.applications.submitted",
		metric.WithDescription("Applications successfully submitted"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("hirelane.applications.rejected",
		metric.WithDescription("Apply attempts refused by a guard, by reason"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("hirelane.applications.transitions",
		metric.WithDescription("Application status transitions, by target status"))
	if err != nil {
		return nil, err
	}
	views, err := meter.Int64Counter("hirelane.jobs.views",
		metric.WithDescription("Job detail views"))
	if err != nil {
		return nil, err
	}

	return &WorkflowMetrics{
		submitted:   submitted,
		rejected:    rejected,
		transitions: transitions,
		views:       views,
	}, nil
}

// Submitted counts one created application. Methods on a nil *WorkflowMetrics are no-ops.
func (m *WorkflowMetrics) Submitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.submitted.Add(ctx, 1)
}

func (m *WorkflowMetrics) Rejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *WorkflowMetrics) Transition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *WorkflowMetrics) Viewed(ctx context.Context) {
	if m == nil {
		return
	}
	m.views.Add(ctx, 1)
}

// RegisterActiveJobsGauge exports the number of active jobs, read on every scrape.
func RegisterActiveJobsGauge(count func(ctx context.Context) (int64, error)) error {
	meter := otel.Meter(meterName)

	_, err := meter.Int64ObservableGauge("hirelane.jobs.active",
		metric.WithDescription("Jobs currently accepting applications"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			n, err := count(ctx)
			if err != nil {
				return err
			}
			o.Observe(n)
			return nil
		}),
	)
	return err
}

// RelayMetrics are the instruments recorded by the event relay.
type RelayMetrics struct {
	published metric.Int64Counter
	failed    metric.Int64Counter
}

func NewRelayMetrics() (*RelayMetrics, error) {
	meter := otel.Meter(meterName)

	published, err := meter.Int64Counter("hirelane.events.published",
		metric.WithDescription("Outbox events delivered to the broker"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("hirelane.events.failed",
		metric.WithDescription("Outbox publish attempts that failed"))
	if err != nil {
		return nil, err
	}
	return &RelayMetrics{published: published, failed: failed}, nil
}

func (m *RelayMetrics) Published(ctx context.Context, topic string) {
	if m == nil {
		return
	}
	m.published.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *RelayMetrics) Failed(ctx context.Context, topic string) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}
