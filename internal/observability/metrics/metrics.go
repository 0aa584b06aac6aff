// Package metrics exposes application-level OTel instruments for the
// message pipeline.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
}

// Metrics holds the pipeline instruments.
type Metrics struct {
	messagesProcessed metric.Int64Counter
	limitDenied       metric.Int64Counter
	webhookRejected   metric.Int64Counter
	brainFailures     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the pipeline instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "conversa"
	}
	meter := provider.Meter(name)

	messagesProcessed, err := meter.Int64Counter("conversa_messages_processed_total",
		metric.WithDescription("Messages fully processed through the pipeline"))
	if err != nil {
		return nil, err
	}
	limitDenied, err := meter.Int64Counter("conversa_limit_denied_total",
		metric.WithDescription("Messages denied by the freemium limit gate"))
	if err != nil {
		return nil, err
	}
	webhookRejected, err := meter.Int64Counter("conversa_webhook_rejected_total",
		metric.WithDescription("Commerce webhook events rejected before processing"))
	if err != nil {
		return nil, err
	}
	brainFailures, err := meter.Int64Counter("conversa_brain_failures_total",
		metric.WithDescription("Reasoning calls that failed and fell back"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		messagesProcessed: messagesProcessed,
		limitDenied:       limitDenied,
		webhookRejected:   webhookRejected,
		brainFailures:     brainFailures,
	}, nil
}

func (m *Metrics) RecordMessageProcessed(ctx context.Context, channel string, intentName string) {
	if m == nil || m.messagesProcessed == nil {
		return
	}
	m.messagesProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("intent", intentName),
	))
}

func (m *Metrics) RecordLimitDenied(ctx context.Context, tierName string) {
	if m == nil || m.limitDenied == nil {
		return
	}
	m.limitDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tierName)))
}

func (m *Metrics) RecordWebhookRejected(ctx context.Context, reason string) {
	if m == nil || m.webhookRejected == nil {
		return
	}
	m.webhookRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordBrainFailure(ctx context.Context) {
	if m == nil || m.brainFailures == nil {
		return
	}
	m.brainFailures.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch protocol {
	case "http":
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "grpc", "":
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
