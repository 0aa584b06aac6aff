// Package domain contains the audit trail model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID    string            `gorm:"type:text" json:"actor_id"`
	Action     string            `gorm:"index;type:text;not null" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   string            `gorm:"index;type:text" json:"target_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"index;not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
