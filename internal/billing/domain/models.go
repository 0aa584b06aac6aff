// Package domain defines the billing snapshot exposed to callers and the
// tier-transition contract.
package domain

import (
	"time"

	"github.com/tinylojas/conversa/internal/tier"
)

type Status string

const (
	// StatusSuspended means the identity is out of quota for the month.
	StatusSuspended Status = "suspended"
	// StatusTrial means a free-tier identity with quota remaining.
	StatusTrial Status = "trial"
	// StatusActive means a paid-tier identity with quota remaining.
	StatusActive Status = "active"
)

type BillingInfo struct {
	Email      string    `json:"email"`
	Tier       tier.Tier `json:"tier"`
	Status     Status    `json:"status"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Percent    float64   `json:"percent"`
	ResetAt    time.Time `json:"reset_at"`
	Price      *float64  `json:"price,omitempty"`
	UpgradeURL string    `json:"upgrade_url,omitempty"`
}

type TierChange struct {
	Email      string      `json:"email"`
	OldTier    tier.Tier   `json:"old_tier"`
	NewTier    tier.Tier   `json:"new_tier"`
	PaymentRef string      `json:"payment_ref,omitempty"`
	Info       BillingInfo `json:"info"`
}
