package domain

import (
	"context"
	"errors"

	"github.com/tinylojas/conversa/internal/tier"
)

type Service interface {
	// GetOrCreate returns the current month's record, creating it with a
	// zero count when absent. A record whose reset time has passed is
	// transparently superseded by a fresh one (reset-on-read).
	GetOrCreate(ctx context.Context, email string, t tier.Tier) (*UsageRecord, error)
	// Increment atomically adds n to the current month's counter. The same
	// reset-on-read check runs first, so a message arriving just after a
	// month boundary starts a fresh counter.
	Increment(ctx context.Context, email string, n int) (*UsageRecord, error)
	// History returns up to months (1..24) records, newest first.
	History(ctx context.Context, email string, months int) ([]UsageRecord, error)
	// TotalAcrossMonths sums every stored record for the identity.
	TotalAcrossMonths(ctx context.Context, email string) (int, error)
	// AverageAcrossMonths averages every stored record for the identity.
	AverageAcrossMonths(ctx context.Context, email string) (float64, error)
}

var (
	ErrInvalidIdentity  = errors.New("invalid_identity")
	ErrInvalidIncrement = errors.New("invalid_increment")
	ErrInvalidMonths    = errors.New("invalid_months")
)
