// Package domain contains persistence models for unified identities and
// their channel bindings.
package domain

import (
	"time"

	"github.com/tinylojas/conversa/internal/tier"
	"gorm.io/datatypes"
)

// Identity is the channel-independent key for a user. Email is the unique key.
type Identity struct {
	Email     string    `gorm:"primaryKey;type:text" json:"email"`
	Tier      tier.Tier `gorm:"type:text;not null;default:free" json:"tier"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Identity) TableName() string { return "identities" }

// ChannelMapping binds a channel-native id to an identity. The uniqueness key
// is (channel, channel_id), not the email: one identity, many channels.
type ChannelMapping struct {
	Channel   string            `gorm:"primaryKey;type:text" json:"channel"`
	ChannelID string            `gorm:"primaryKey;type:text" json:"channel_id"`
	Email     string            `gorm:"index;type:text;not null" json:"email"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (ChannelMapping) TableName() string { return "channel_mappings" }
