package domain

import (
	"context"
	"errors"

	"github.com/tinylojas/conversa/internal/tier"
)

type Service interface {
	Info(ctx context.Context, email string) (*BillingInfo, error)
	// UpgradeURL fails with tier.ErrInvalidTier for an unknown target and
	// ErrInvalidUpgrade when the target is not strictly above the current
	// tier. This check is the single source of truth for legal transitions.
	UpgradeURL(ctx context.Context, email string, target tier.Tier) (string, error)
	// ApplyTierChange revalidates through the same upgrade check, persists
	// the new tier, and returns the old/new tier with a fresh snapshot.
	ApplyTierChange(ctx context.Context, email string, target tier.Tier, paymentRef string) (*TierChange, error)
}

var ErrInvalidUpgrade = errors.New("invalid_upgrade")
