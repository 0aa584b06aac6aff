package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/tinylojas/conversa/internal/clock"
	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
	"github.com/tinylojas/conversa/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupLedger(t *testing.T, fake *clock.FakeClock) (usagedomain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&usagedomain.UsageRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := &Service{
		db:      db,
		log:     zap.NewNop(),
		genID:   mustNode(t),
		clock:   fake,
		records: repository.ProvideStore[usagedomain.UsageRecord](db),
	}
	return svc, db
}

func TestGetOrCreateLazyMaterialization(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	svc, _ := setupLedger(t, fake)
	ctx := context.Background()

	record, err := svc.GetOrCreate(ctx, "ana@loja.com", tier.Free)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if record.MessageCount != 0 {
		t.Fatalf("fresh record count = %d, want 0", record.MessageCount)
	}
	if record.Year != 2026 || record.Month != 3 {
		t.Fatalf("unexpected record month: %d-%d", record.Year, record.Month)
	}

	want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !record.ResetAt.Equal(want) {
		t.Fatalf("reset_at = %v, want %v", record.ResetAt, want)
	}
}

func TestResetOnRead(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC))
	svc, db := setupLedger(t, fake)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "ana@loja.com", tier.Free); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if _, err := svc.Increment(ctx, "ana@loja.com", 5); err != nil {
		t.Fatalf("increment: %v", err)
	}

	// Cross the month boundary: the next read must yield a fresh counter
	// with a reset instant exactly one calendar month later.
	fake.Set(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	record, err := svc.GetOrCreate(ctx, "ana@loja.com", tier.Free)
	if err != nil {
		t.Fatalf("get or create after boundary: %v", err)
	}
	if record.MessageCount != 0 {
		t.Fatalf("post-reset count = %d, want 0", record.MessageCount)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !record.ResetAt.Equal(want) {
		t.Fatalf("post-reset reset_at = %v, want %v", record.ResetAt, want)
	}

	// The superseded January record must survive for history.
	var count int64
	if err := db.Model(&usagedomain.UsageRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records after rollover, got %d", count)
	}
}

func TestIncrementStartsFreshAfterBoundary(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 5, 31, 23, 59, 0, 0, time.UTC))
	svc, _ := setupLedger(t, fake)
	ctx := context.Background()

	if _, err := svc.Increment(ctx, "ana@loja.com", 3); err != nil {
		t.Fatalf("increment: %v", err)
	}

	fake.Advance(2 * time.Minute)

	record, err := svc.Increment(ctx, "ana@loja.com", 1)
	if err != nil {
		t.Fatalf("increment after boundary: %v", err)
	}
	if record.Month != 6 {
		t.Fatalf("increment landed on month %d, want 6", record.Month)
	}
	if record.MessageCount != 1 {
		t.Fatalf("post-boundary count = %d, want 1", record.MessageCount)
	}
}

func TestConcurrentIncrementsDoNotLoseUpdates(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc, _ := setupLedger(t, fake)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "ana@loja.com", tier.Pro); err != nil {
		t.Fatalf("get or create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Increment(ctx, "ana@loja.com", 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent increment: %v", err)
	}

	record, err := svc.GetOrCreate(ctx, "ana@loja.com", tier.Pro)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if record.MessageCount != 2 {
		t.Fatalf("final count = %d, want 2", record.MessageCount)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC))
	svc, _ := setupLedger(t, fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Increment(ctx, "ana@loja.com", i+1); err != nil {
			t.Fatalf("increment month %d: %v", i, err)
		}
		fake.Advance(31 * 24 * time.Hour)
	}

	history, err := svc.History(ctx, "ana@loja.com", 24)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i := 1; i < len(history); i++ {
		prev := history[i-1]
		curr := history[i]
		if prev.Year < curr.Year || (prev.Year == curr.Year && prev.Month < curr.Month) {
			t.Fatalf("history not newest-first at index %d", i)
		}
	}

	if _, err := svc.History(ctx, "ana@loja.com", 0); err != usagedomain.ErrInvalidMonths {
		t.Fatalf("expected ErrInvalidMonths, got %v", err)
	}
	if _, err := svc.History(ctx, "ana@loja.com", 25); err != usagedomain.ErrInvalidMonths {
		t.Fatalf("expected ErrInvalidMonths, got %v", err)
	}
}

func TestAggregates(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC))
	svc, _ := setupLedger(t, fake)
	ctx := context.Background()

	if _, err := svc.Increment(ctx, "ana@loja.com", 10); err != nil {
		t.Fatalf("increment: %v", err)
	}
	fake.Advance(32 * 24 * time.Hour)
	if _, err := svc.Increment(ctx, "ana@loja.com", 30); err != nil {
		t.Fatalf("increment: %v", err)
	}

	total, err := svc.TotalAcrossMonths(ctx, "ana@loja.com")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 40 {
		t.Fatalf("total = %d, want 40", total)
	}

	avg, err := svc.AverageAcrossMonths(ctx, "ana@loja.com")
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 20 {
		t.Fatalf("average = %v, want 20", avg)
	}
}
