package observability

import (
	"go.uber.org/fx"

	"github.com/tinylojas/conversa/internal/config"
	"github.com/tinylojas/conversa/internal/observability/metrics"
)

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OTLPEnabled,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: cfg.OTLPProtocol,
		ServiceName:      cfg.AppName,
	}
}

// Module wires the meter provider and pipeline instruments.
var Module = fx.Module("observability",
	fx.Provide(
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
	),
)
