// Package limits derives allow/deny and warning decisions from the usage
// ledger and the tier catalog.
package limits

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tinylojas/conversa/internal/config"
	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// LimitExceededError is the structured signal raised when an identity is out
// of quota. It carries enough data to render an upgrade prompt.
type LimitExceededError struct {
	Email      string    `json:"email"`
	Tier       tier.Tier `json:"tier"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	UpgradeURL string    `json:"upgrade_url"`
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("message limit exceeded: %d/%d used on tier %s", e.Used, e.Limit, e.Tier)
}

// Decision is a point-in-time read of an identity's standing against its
// limit. Percent is never capped at 100.
type Decision struct {
	Email      string    `json:"email"`
	Tier       tier.Tier `json:"tier"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Percent    float64   `json:"percent"`
	Exceeded   bool      `json:"exceeded"`
	UpgradeURL string    `json:"upgrade_url,omitempty"`
}

// WarningDecision reports proximity to the limit against a threshold.
type WarningDecision struct {
	IsWarning            bool    `json:"is_warning"`
	Percent              float64 `json:"percent"`
	MessagesUntilWarning int     `json:"messages_until_warning"`
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Usage usagedomain.Service
}

type Gate struct {
	log            *zap.Logger
	usage          usagedomain.Service
	upgradeBaseURL string
}

func NewGate(p Params) *Gate {
	return &Gate{
		log:            p.Log.Named("limits.gate"),
		usage:          p.Usage,
		upgradeBaseURL: p.Cfg.UpgradeBaseURL,
	}
}

// CanSend reports whether the identity may send n more messages this month.
// Enterprise is always allowed.
func (g *Gate) CanSend(ctx context.Context, email string, t tier.Tier, n int) (bool, error) {
	if n < 1 {
		n = 1
	}
	if t == tier.Enterprise {
		return true, nil
	}

	limit, err := tier.Limit(t)
	if err != nil {
		return false, err
	}
	record, err := g.usage.GetOrCreate(ctx, email, t)
	if err != nil {
		return false, err
	}
	return record.MessageCount+n <= limit, nil
}

// Enforce returns a *LimitExceededError when the identity is out of quota,
// nil otherwise.
func (g *Gate) Enforce(ctx context.Context, email string, t tier.Tier) error {
	ok, err := g.CanSend(ctx, email, t, 1)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	limit, err := tier.Limit(t)
	if err != nil {
		return err
	}
	record, err := g.usage.GetOrCreate(ctx, email, t)
	if err != nil {
		return err
	}

	return &LimitExceededError{
		Email:      email,
		Tier:       t,
		Used:       record.MessageCount,
		Limit:      limit,
		Remaining:  0,
		UpgradeURL: g.UpgradeURL(email, nextTierUp(t)),
	}
}

// Status returns the full limit decision for the identity. Enterprise
// remaining is the catalog sentinel, never recomputed from usage.
func (g *Gate) Status(ctx context.Context, email string, t tier.Tier) (*Decision, error) {
	limit, err := tier.Limit(t)
	if err != nil {
		return nil, err
	}
	record, err := g.usage.GetOrCreate(ctx, email, t)
	if err != nil {
		return nil, err
	}

	if t == tier.Enterprise {
		return &Decision{
			Email:     email,
			Tier:      t,
			Used:      record.MessageCount,
			Limit:     limit,
			Remaining: tier.EnterpriseLimit,
			Percent:   record.PercentOf(limit),
		}, nil
	}

	decision := &Decision{
		Email:     email,
		Tier:      t,
		Used:      record.MessageCount,
		Limit:     limit,
		Remaining: record.Remaining(limit),
		Percent:   record.PercentOf(limit),
		Exceeded:  record.MessageCount >= limit,
	}
	if decision.Exceeded {
		decision.UpgradeURL = g.UpgradeURL(email, nextTierUp(t))
	}
	return decision, nil
}

// WarningStatus reports whether usage has crossed threshold percent of the
// limit, and how many messages remain until it does.
func (g *Gate) WarningStatus(ctx context.Context, email string, t tier.Tier, threshold float64) (*WarningDecision, error) {
	if threshold < 0 || threshold > 100 {
		threshold = 80
	}

	decision, err := g.Status(ctx, email, t)
	if err != nil {
		return nil, err
	}

	warnAt := int(float64(decision.Limit) * threshold / 100)
	until := warnAt - decision.Used
	if until < 0 {
		until = 0
	}
	return &WarningDecision{
		IsWarning:            decision.Percent >= threshold,
		Percent:              decision.Percent,
		MessagesUntilWarning: until,
	}, nil
}

// UpgradeURL builds the informational upgrade locator. It embeds the
// identity and target tier; it is not a capability token.
func (g *Gate) UpgradeURL(email string, target tier.Tier) string {
	return fmt.Sprintf("%s/upgrade?identity=%s&tier=%s",
		g.upgradeBaseURL,
		url.QueryEscape(email),
		url.QueryEscape(string(target)),
	)
}

func nextTierUp(t tier.Tier) tier.Tier {
	switch t {
	case tier.Free:
		return tier.Pro
	default:
		return tier.Enterprise
	}
}

// Module provides the limit gate.
var Module = fx.Module("limits.gate",
	fx.Provide(NewGate),
)
