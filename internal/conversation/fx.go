package conversation

import (
	"github.com/tinylojas/conversa/internal/conversation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversation.service",
	fx.Provide(service.NewService),
)
