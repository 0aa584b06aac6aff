package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/tinylojas/conversa/internal/audit/domain"
	"github.com/tinylojas/conversa/internal/clock"
	"github.com/tinylojas/conversa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	logs  repository.Repository[auditdomain.AuditLog]
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		logs:  repository.ProvideStore[auditdomain.AuditLog](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, actorType, actorID, action, targetType, targetID string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	if targetType = strings.TrimSpace(targetType); targetType == "" {
		targetType = "unknown"
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  strings.TrimSpace(actorType),
		ActorID:    strings.TrimSpace(actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(targetID),
		CreatedAt:  s.clock.Now(),
	}
	if metadata != nil {
		entry.Metadata = datatypes.JSONMap(metadata)
	}

	if err := s.logs.Create(ctx, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) ([]auditdomain.AuditLog, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 250 {
		limit = 250
	}

	rows, err := s.logs.Find(ctx, &auditdomain.AuditLog{
		Action:     strings.TrimSpace(req.Action),
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   strings.TrimSpace(req.TargetID),
	},
		repository.OrderBy("created_at DESC"),
		repository.Limit(limit),
	)
	if err != nil {
		return nil, err
	}

	out := make([]auditdomain.AuditLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}
