package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tinylojas/conversa/internal/clock"
	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
	"github.com/tinylojas/conversa/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupContexts(t *testing.T) convdomain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&convdomain.Context{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Service{
		log:      zap.NewNop(),
		clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		contexts: repository.ProvideStore[convdomain.Context](db),
	}
}

func TestGetReturnsEmptyContext(t *testing.T) {
	svc := setupContexts(t)

	got, err := svc.Get(context.Background(), "ana@loja.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "ana@loja.com" {
		t.Fatalf("email = %q", got.Email)
	}
	if len(got.Turns()) != 0 {
		t.Fatal("fresh context must have no history")
	}
}

func TestAppendExchangeOrder(t *testing.T) {
	svc := setupContexts(t)
	ctx := context.Background()

	connector := "ifood"
	if _, err := svc.AppendExchange(ctx, convdomain.AppendRequest{
		Email:         "ana@loja.com",
		Inbound:       "Quantos pedidos tenho?",
		Outbound:      "Você tem 12 pedidos hoje.",
		LastIntent:    "check_orders",
		LastConnector: &connector,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := svc.Get(ctx, "ana@loja.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	turns := got.Turns()
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("turn order wrong: %s then %s", turns[0].Role, turns[1].Role)
	}
	if got.LastIntent != "check_orders" {
		t.Fatalf("last intent = %q", got.LastIntent)
	}
	if got.LastConnector == nil || *got.LastConnector != "ifood" {
		t.Fatalf("last connector = %v", got.LastConnector)
	}
}

func TestHistoryBounded(t *testing.T) {
	svc := setupContexts(t)
	ctx := context.Background()

	for i := 0; i < convdomain.MaxHistoryTurns; i++ {
		if _, err := svc.AppendExchange(ctx, convdomain.AppendRequest{
			Email:    "ana@loja.com",
			Inbound:  "oi",
			Outbound: "olá",
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := svc.Get(ctx, "ana@loja.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Turns()) != convdomain.MaxHistoryTurns {
		t.Fatalf("history length = %d, want bound %d", len(got.Turns()), convdomain.MaxHistoryTurns)
	}
}

func TestSetPreference(t *testing.T) {
	svc := setupContexts(t)
	ctx := context.Background()

	if err := svc.SetPreference(ctx, "ana@loja.com", "language", "pt-BR"); err != nil {
		t.Fatalf("set preference: %v", err)
	}

	got, err := svc.Get(ctx, "ana@loja.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Preferences["language"] != "pt-BR" {
		t.Fatalf("preference = %v", got.Preferences["language"])
	}
}
