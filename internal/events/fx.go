package events

import (
	"context"

	"github.com/tinylojas/conversa/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig builds the publisher when a broker is configured; otherwise
// it returns nil and every Publish becomes a no-op.
func NewFromConfig(cfg config.Config, log *zap.Logger) (*Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info("integration events disabled: no AMQP_URL configured")
		return nil, nil
	}
	return NewPublisher(cfg.AMQPURL, cfg.AMQPQueue, log)
}

func registerHooks(lc fx.Lifecycle, p *Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return p.Close()
		},
	})
}

var Module = fx.Module("events",
	fx.Provide(NewFromConfig),
	fx.Invoke(registerHooks),
)
