package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/tinylojas/conversa/internal/audit"
	"github.com/tinylojas/conversa/internal/billing"
	"github.com/tinylojas/conversa/internal/brain"
	"github.com/tinylojas/conversa/internal/channels"
	"github.com/tinylojas/conversa/internal/clock"
	"github.com/tinylojas/conversa/internal/config"
	"github.com/tinylojas/conversa/internal/conversation"
	"github.com/tinylojas/conversa/internal/events"
	"github.com/tinylojas/conversa/internal/identity"
	"github.com/tinylojas/conversa/internal/intent"
	"github.com/tinylojas/conversa/internal/limits"
	"github.com/tinylojas/conversa/internal/logger"
	"github.com/tinylojas/conversa/internal/migration"
	"github.com/tinylojas/conversa/internal/observability"
	"github.com/tinylojas/conversa/internal/orchestrator"
	"github.com/tinylojas/conversa/internal/ratelimit"
	"github.com/tinylojas/conversa/internal/server"
	"github.com/tinylojas/conversa/internal/usage"
	"github.com/tinylojas/conversa/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		identity.Module,
		usage.Module,
		limits.Module,
		billing.Module,
		conversation.Module,
		intent.Module,
		channels.Module,
		brain.Module,
		audit.Module,
		events.Module,
		ratelimit.Module,
		orchestrator.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
