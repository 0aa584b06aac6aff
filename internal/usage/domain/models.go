// Package domain contains persistence models for the per-identity monthly
// message ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tinylojas/conversa/internal/tier"
)

// UsageRecord counts messages for one identity in one calendar month.
// MessageCount only ever grows; a month rollover produces a fresh record
// instead of mutating this one.
type UsageRecord struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"uniqueIndex:idx_usage_identity_month;type:text;not null" json:"email"`
	Year         int          `gorm:"uniqueIndex:idx_usage_identity_month;not null" json:"year"`
	Month        int          `gorm:"uniqueIndex:idx_usage_identity_month;not null" json:"month"`
	MessageCount int          `gorm:"not null;default:0" json:"message_count"`
	Tier         tier.Tier    `gorm:"type:text;not null" json:"tier"`
	ResetAt      time.Time    `gorm:"not null" json:"reset_at"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (UsageRecord) TableName() string { return "usage_records" }

// PercentOf returns usage as a percentage of limit. The value is never
// capped at 100; callers compare against 100 to detect over-limit.
func (r UsageRecord) PercentOf(limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(r.MessageCount) / float64(limit) * 100
}

// Remaining returns how many messages are left under limit, floored at zero.
func (r UsageRecord) Remaining(limit int) int {
	if r.MessageCount >= limit {
		return 0
	}
	return limit - r.MessageCount
}
