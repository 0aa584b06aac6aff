package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
	"go.uber.org/zap"
)

type ledgerStub struct {
	count int
}

func (l *ledgerStub) GetOrCreate(ctx context.Context, email string, t tier.Tier) (*usagedomain.UsageRecord, error) {
	return &usagedomain.UsageRecord{
		Email:        email,
		Tier:         t,
		MessageCount: l.count,
		ResetAt:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (l *ledgerStub) Increment(ctx context.Context, email string, n int) (*usagedomain.UsageRecord, error) {
	l.count += n
	return l.GetOrCreate(ctx, email, tier.Free)
}

func (l *ledgerStub) History(ctx context.Context, email string, months int) ([]usagedomain.UsageRecord, error) {
	return nil, nil
}

func (l *ledgerStub) TotalAcrossMonths(ctx context.Context, email string) (int, error) {
	return l.count, nil
}

func (l *ledgerStub) AverageAcrossMonths(ctx context.Context, email string) (float64, error) {
	return float64(l.count), nil
}

func newGate(count int) *Gate {
	return &Gate{
		log:            zap.NewNop(),
		usage:          &ledgerStub{count: count},
		upgradeBaseURL: "https://app.conversa.bot",
	}
}

func TestFreeTierAtLimit(t *testing.T) {
	gate := newGate(100)
	ctx := context.Background()

	ok, err := gate.CanSend(ctx, "ana@loja.com", tier.Free, 1)
	if err != nil {
		t.Fatalf("can send: %v", err)
	}
	if ok {
		t.Fatal("expected CanSend=false at the free limit")
	}

	err = gate.Enforce(ctx, "ana@loja.com", tier.Free)
	var exceeded *LimitExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected LimitExceededError, got %v", err)
	}
	if exceeded.Limit != 100 || exceeded.Remaining != 0 {
		t.Fatalf("unexpected signal: limit=%d remaining=%d", exceeded.Limit, exceeded.Remaining)
	}
	if exceeded.UpgradeURL == "" {
		t.Fatal("limit signal must carry an upgrade locator")
	}

	status, err := gate.Status(ctx, "ana@loja.com", tier.Free)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Exceeded {
		t.Fatal("expected exceeded status")
	}
}

func TestRemainingIdentity(t *testing.T) {
	for _, used := range []int{0, 1, 50, 99, 100} {
		gate := newGate(used)
		status, err := gate.Status(context.Background(), "ana@loja.com", tier.Free)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		wantRemaining := 100 - used
		if wantRemaining < 0 {
			wantRemaining = 0
		}
		if status.Remaining != wantRemaining {
			t.Fatalf("used=%d remaining=%d, want %d", used, status.Remaining, wantRemaining)
		}
		if used <= 100 && status.Remaining+status.Used != 100 {
			t.Fatalf("used=%d violates remaining+used==limit", used)
		}
	}
}

func TestPercentNeverCapped(t *testing.T) {
	gate := newGate(150)
	status, err := gate.Status(context.Background(), "ana@loja.com", tier.Free)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Percent != 150 {
		t.Fatalf("percent = %v, want 150 (uncapped)", status.Percent)
	}
}

func TestEnterpriseAlwaysAllowed(t *testing.T) {
	gate := newGate(5_000_000)
	ctx := context.Background()

	ok, err := gate.CanSend(ctx, "big@corp.com", tier.Enterprise, 1)
	if err != nil {
		t.Fatalf("can send: %v", err)
	}
	if !ok {
		t.Fatal("enterprise must always be allowed")
	}

	status, err := gate.Status(ctx, "big@corp.com", tier.Enterprise)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Remaining != tier.EnterpriseLimit {
		t.Fatalf("enterprise remaining = %d, want catalog sentinel", status.Remaining)
	}
	if status.Exceeded {
		t.Fatal("enterprise must never report exceeded")
	}
}

func TestWarningStatus(t *testing.T) {
	gate := newGate(85)
	decision, err := gate.WarningStatus(context.Background(), "ana@loja.com", tier.Free, 80)
	if err != nil {
		t.Fatalf("warning status: %v", err)
	}
	if !decision.IsWarning {
		t.Fatal("85/100 must warn at threshold 80")
	}

	gate = newGate(70)
	decision, err = gate.WarningStatus(context.Background(), "ana@loja.com", tier.Free, 80)
	if err != nil {
		t.Fatalf("warning status: %v", err)
	}
	if decision.IsWarning {
		t.Fatal("70/100 must not warn at threshold 80")
	}
	if decision.MessagesUntilWarning != 10 {
		t.Fatalf("messages until warning = %d, want 10", decision.MessagesUntilWarning)
	}
}
