package domain

import (
	"context"
	"errors"

	"github.com/tinylojas/conversa/internal/tier"
)

type BindRequest struct {
	Channel   string         `json:"channel"`
	ChannelID string         `json:"channel_id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Service interface {
	// Resolve maps a (channel, channel-native id) pair to the unified identity.
	Resolve(ctx context.Context, channel, channelID string) (string, error)
	// Bind creates or explicitly re-creates a channel mapping. Never implicit.
	Bind(ctx context.Context, req BindRequest) (*ChannelMapping, error)
	// ChannelsFor lists every channel where the identity is known.
	ChannelsFor(ctx context.Context, email string) (map[string]string, error)

	Get(ctx context.Context, email string) (*Identity, error)
	Create(ctx context.Context, email string, t tier.Tier) (*Identity, error)
	SetTier(ctx context.Context, email string, t tier.Tier) (*Identity, error)
}

var (
	ErrIdentityNotFound = errors.New("identity_not_found")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidChannel   = errors.New("invalid_channel")
	ErrInvalidChannelID = errors.New("invalid_channel_id")
)
