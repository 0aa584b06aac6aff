package domain

import (
	"context"
	"errors"
)

type ListRequest struct {
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	Limit      int    `form:"limit,default=50"`
}

type Service interface {
	// Record writes one audit entry. Callers on the message path treat
	// failures as best-effort; they never affect the user-visible outcome.
	Record(ctx context.Context, actorType, actorID, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListRequest) ([]AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_action")
