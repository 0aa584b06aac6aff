package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	billingdomain "github.com/tinylojas/conversa/internal/billing/domain"
	"github.com/tinylojas/conversa/internal/config"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/limits"
	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
)

type identityStub struct {
	tiers       map[string]tier.Tier
	setTierCall int
}

func (s *identityStub) Resolve(context.Context, string, string) (string, error) {
	return "", identitydomain.ErrIdentityNotFound
}

func (s *identityStub) Bind(context.Context, identitydomain.BindRequest) (*identitydomain.ChannelMapping, error) {
	return nil, errors.New("not implemented")
}

func (s *identityStub) ChannelsFor(context.Context, string) (map[string]string, error) {
	return nil, nil
}

func (s *identityStub) Get(_ context.Context, email string) (*identitydomain.Identity, error) {
	t, ok := s.tiers[email]
	if !ok {
		return nil, identitydomain.ErrIdentityNotFound
	}
	return &identitydomain.Identity{Email: email, Tier: t}, nil
}

func (s *identityStub) Create(_ context.Context, email string, t tier.Tier) (*identitydomain.Identity, error) {
	s.tiers[email] = t
	return &identitydomain.Identity{Email: email, Tier: t}, nil
}

func (s *identityStub) SetTier(_ context.Context, email string, t tier.Tier) (*identitydomain.Identity, error) {
	s.setTierCall++
	s.tiers[email] = t
	return &identitydomain.Identity{Email: email, Tier: t}, nil
}

type ledgerStub struct {
	counts map[string]int
}

func (s *ledgerStub) GetOrCreate(_ context.Context, email string, t tier.Tier) (*usagedomain.UsageRecord, error) {
	return &usagedomain.UsageRecord{Email: email, MessageCount: s.counts[email], Tier: t}, nil
}

func (s *ledgerStub) Increment(_ context.Context, email string, n int) (*usagedomain.UsageRecord, error) {
	s.counts[email] += n
	return &usagedomain.UsageRecord{Email: email, MessageCount: s.counts[email]}, nil
}

func (s *ledgerStub) History(context.Context, string, int) ([]usagedomain.UsageRecord, error) {
	return nil, nil
}

func (s *ledgerStub) TotalAcrossMonths(context.Context, string) (int, error) { return 0, nil }

func (s *ledgerStub) AverageAcrossMonths(context.Context, string) (float64, error) { return 0, nil }

func newBillingService(idents *identityStub, ledger *ledgerStub) billingdomain.Service {
	gate := limits.NewGate(limits.Params{
		Cfg:   config.Config{UpgradeBaseURL: "https://app.example.com"},
		Log:   zap.NewNop(),
		Usage: ledger,
	})
	return NewService(Params{
		Log:        zap.NewNop(),
		Identities: idents,
		Usage:      ledger,
		Gate:       gate,
	})
}

func TestUpgradeURLRejectsDowngrade(t *testing.T) {
	idents := &identityStub{tiers: map[string]tier.Tier{"pro@example.com": tier.Pro}}
	svc := newBillingService(idents, &ledgerStub{counts: map[string]int{}})

	_, err := svc.UpgradeURL(context.Background(), "pro@example.com", tier.Free)
	if !errors.Is(err, billingdomain.ErrInvalidUpgrade) {
		t.Fatalf("err = %v, want ErrInvalidUpgrade", err)
	}
}

func TestUpgradeURLRejectsSameTier(t *testing.T) {
	idents := &identityStub{tiers: map[string]tier.Tier{"pro@example.com": tier.Pro}}
	svc := newBillingService(idents, &ledgerStub{counts: map[string]int{}})

	_, err := svc.UpgradeURL(context.Background(), "pro@example.com", tier.Pro)
	if !errors.Is(err, billingdomain.ErrInvalidUpgrade) {
		t.Fatalf("err = %v, want ErrInvalidUpgrade", err)
	}
}

func TestUpgradeURLEmbedsIdentityAndTarget(t *testing.T) {
	idents := &identityStub{tiers: map[string]tier.Tier{"ana@example.com": tier.Free}}
	svc := newBillingService(idents, &ledgerStub{counts: map[string]int{}})

	url, err := svc.UpgradeURL(context.Background(), "ana@example.com", tier.Pro)
	if err != nil {
		t.Fatalf("UpgradeURL: %v", err)
	}
	if !strings.Contains(url, "identity=ana%40example.com") || !strings.Contains(url, "tier=pro") {
		t.Fatalf("locator %q missing identity or target tier", url)
	}
}

func TestApplyTierChangeRevalidates(t *testing.T) {
	idents := &identityStub{tiers: map[string]tier.Tier{"pro@example.com": tier.Pro}}
	svc := newBillingService(idents, &ledgerStub{counts: map[string]int{}})

	_, err := svc.ApplyTierChange(context.Background(), "pro@example.com", tier.Free, "pay_1")
	if !errors.Is(err, billingdomain.ErrInvalidUpgrade) {
		t.Fatalf("err = %v, want ErrInvalidUpgrade", err)
	}
	if idents.setTierCall != 0 {
		t.Fatalf("SetTier calls = %d, want 0 on a rejected change", idents.setTierCall)
	}
}

func TestApplyTierChangePersistsAndReports(t *testing.T) {
	idents := &identityStub{tiers: map[string]tier.Tier{"ana@example.com": tier.Free}}
	svc := newBillingService(idents, &ledgerStub{counts: map[string]int{"ana@example.com": 42}})

	change, err := svc.ApplyTierChange(context.Background(), "ana@example.com", tier.Pro, "pay_1")
	if err != nil {
		t.Fatalf("ApplyTierChange: %v", err)
	}
	if change.OldTier != tier.Free || change.NewTier != tier.Pro {
		t.Fatalf("change = %+v", change)
	}
	if idents.tiers["ana@example.com"] != tier.Pro {
		t.Fatal("tier was not persisted")
	}
	if change.Info.Tier != tier.Pro {
		t.Fatalf("refreshed info tier = %s, want pro", change.Info.Tier)
	}
	if change.Info.Status != billingdomain.StatusActive {
		t.Fatalf("status = %s, want active", change.Info.Status)
	}
}

func TestInfoStatusDerivation(t *testing.T) {
	cases := []struct {
		name string
		t    tier.Tier
		used int
		want billingdomain.Status
	}{
		{"free with quota", tier.Free, 10, billingdomain.StatusTrial},
		{"free exhausted", tier.Free, 100, billingdomain.StatusSuspended},
		{"pro with quota", tier.Pro, 500, billingdomain.StatusActive},
		{"pro exhausted", tier.Pro, 10000, billingdomain.StatusSuspended},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idents := &identityStub{tiers: map[string]tier.Tier{"ana@example.com": tc.t}}
			svc := newBillingService(idents, &ledgerStub{counts: map[string]int{"ana@example.com": tc.used}})

			info, err := svc.Info(context.Background(), "ana@example.com")
			if err != nil {
				t.Fatalf("Info: %v", err)
			}
			if info.Status != tc.want {
				t.Fatalf("status = %s, want %s", info.Status, tc.want)
			}
		})
	}
}

func TestInfoExhaustedCarriesUpgradeURL(t *testing.T) {
	idents := &identityStub{tiers: map[string]tier.Tier{"ana@example.com": tier.Free}}
	svc := newBillingService(idents, &ledgerStub{counts: map[string]int{"ana@example.com": 100}})

	info, err := svc.Info(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.UpgradeURL == "" {
		t.Fatal("suspended info must carry an upgrade locator")
	}
}
