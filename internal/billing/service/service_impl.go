package service

import (
	"context"

	auditdomain "github.com/tinylojas/conversa/internal/audit/domain"
	billingdomain "github.com/tinylojas/conversa/internal/billing/domain"
	"github.com/tinylojas/conversa/internal/events"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/limits"
	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Identities identitydomain.Service
	Usage      usagedomain.Service
	Gate       *limits.Gate
	Audit      auditdomain.Service `optional:"true"`
	Events     *events.Publisher   `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	identities identitydomain.Service
	usage      usagedomain.Service
	gate       *limits.Gate
	audit      auditdomain.Service
	events     *events.Publisher
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		log:        p.Log.Named("billing.service"),
		identities: p.Identities,
		usage:      p.Usage,
		gate:       p.Gate,
		audit:      p.Audit,
		events:     p.Events,
	}
}

func (s *Service) Info(ctx context.Context, email string) (*billingdomain.BillingInfo, error) {
	id, err := s.identities.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	decision, err := s.gate.Status(ctx, id.Email, id.Tier)
	if err != nil {
		return nil, err
	}
	record, err := s.usage.GetOrCreate(ctx, id.Email, id.Tier)
	if err != nil {
		return nil, err
	}
	price, err := tier.Price(id.Tier)
	if err != nil {
		return nil, err
	}

	info := &billingdomain.BillingInfo{
		Email:      id.Email,
		Tier:       id.Tier,
		Status:     deriveStatus(id.Tier, decision.Remaining),
		Used:       decision.Used,
		Limit:      decision.Limit,
		Remaining:  decision.Remaining,
		Percent:    decision.Percent,
		ResetAt:    record.ResetAt,
		Price:      price,
		UpgradeURL: decision.UpgradeURL,
	}
	return info, nil
}

func (s *Service) UpgradeURL(ctx context.Context, email string, target tier.Tier) (string, error) {
	id, err := s.identities.Get(ctx, email)
	if err != nil {
		return "", err
	}
	if err := validateUpgrade(id.Tier, target); err != nil {
		return "", err
	}
	return s.gate.UpgradeURL(id.Email, target), nil
}

func (s *Service) ApplyTierChange(ctx context.Context, email string, target tier.Tier, paymentRef string) (*billingdomain.TierChange, error) {
	id, err := s.identities.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	oldTier := id.Tier

	// Same legality check used for locator generation; a tier change is
	// never applied without passing it.
	if err := validateUpgrade(oldTier, target); err != nil {
		return nil, err
	}

	if _, err := s.identities.SetTier(ctx, id.Email, target); err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, "system", "billing", "tier.changed", "identity", id.Email, map[string]any{
			"old_tier":    string(oldTier),
			"new_tier":    string(target),
			"payment_ref": paymentRef,
		})
	}
	if s.events != nil {
		s.events.Publish(ctx, events.Event{
			Type: events.TypeTierChanged,
			Payload: map[string]any{
				"email":       id.Email,
				"old_tier":    string(oldTier),
				"new_tier":    string(target),
				"payment_ref": paymentRef,
			},
		})
	}

	info, err := s.Info(ctx, id.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info("tier changed",
		zap.String("email", id.Email),
		zap.String("old_tier", string(oldTier)),
		zap.String("new_tier", string(target)),
	)
	return &billingdomain.TierChange{
		Email:      id.Email,
		OldTier:    oldTier,
		NewTier:    target,
		PaymentRef: paymentRef,
		Info:       *info,
	}, nil
}

func validateUpgrade(current, target tier.Tier) error {
	up, err := tier.IsUpgrade(current, target)
	if err != nil {
		return err
	}
	if !up {
		return billingdomain.ErrInvalidUpgrade
	}
	return nil
}

func deriveStatus(t tier.Tier, remaining int) billingdomain.Status {
	switch {
	case remaining == 0:
		return billingdomain.StatusSuspended
	case t == tier.Free:
		return billingdomain.StatusTrial
	default:
		return billingdomain.StatusActive
	}
}
