package brain

import (
	"github.com/tinylojas/conversa/internal/config"
	"go.uber.org/fx"
)

// NewFromConfig builds the reasoning client from application configuration.
func NewFromConfig(cfg config.Config) Generator {
	return NewOpenRouterClient(cfg.BrainBaseURL, cfg.BrainAPIKey, cfg.BrainModel)
}

var Module = fx.Module("brain",
	fx.Provide(NewFromConfig),
)
