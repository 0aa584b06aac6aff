package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	auditdomain "github.com/tinylojas/conversa/internal/audit/domain"
	"github.com/tinylojas/conversa/internal/config"
	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and embedded sqlite deployments migrate through gorm.
		return conn.AutoMigrate(
			&identitydomain.Identity{},
			&identitydomain.ChannelMapping{},
			&usagedomain.UsageRecord{},
			&convdomain.Context{},
			&auditdomain.AuditLog{},
		)
	}),
)
