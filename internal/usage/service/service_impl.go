package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tinylojas/conversa/internal/clock"
	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
	"github.com/tinylojas/conversa/pkg/db"
	"github.com/tinylojas/conversa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	records repository.Repository[usagedomain.UsageRecord]
}

func NewService(p Params) usagedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		records: repository.ProvideStore[usagedomain.UsageRecord](p.DB),
	}
}

func (s *Service) GetOrCreate(ctx context.Context, email string, t tier.Tier) (*usagedomain.UsageRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, usagedomain.ErrInvalidIdentity
	}
	if !tier.Validate(t) {
		return nil, tier.ErrInvalidTier
	}

	now := s.clock.Now()
	record, err := s.records.FindOne(ctx, &usagedomain.UsageRecord{
		Email: email,
		Year:  now.Year(),
		Month: int(now.Month()),
	})
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	fresh := usagedomain.UsageRecord{
		ID:           s.genID.Generate(),
		Email:        email,
		Year:         now.Year(),
		Month:        int(now.Month()),
		MessageCount: 0,
		Tier:         t,
		ResetAt:      nextResetAt(now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.records.Create(ctx, &fresh); err != nil {
		// A concurrent request materialized the month first; converge on it.
		if db.IsDuplicateKeyErr(err) {
			return s.records.FindOne(ctx, &usagedomain.UsageRecord{
				Email: email,
				Year:  now.Year(),
				Month: int(now.Month()),
			})
		}
		return nil, err
	}
	return &fresh, nil
}

func (s *Service) Increment(ctx context.Context, email string, n int) (*usagedomain.UsageRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, usagedomain.ErrInvalidIdentity
	}
	if n < 1 {
		return nil, usagedomain.ErrInvalidIncrement
	}

	// Reset-on-read before charging: the current month's record must exist
	// so the add lands on a fresh counter after a month boundary. Tier on
	// the record is a snapshot; reuse the previous one when present.
	current, err := s.currentTier(ctx, email)
	if err != nil {
		return nil, err
	}
	record, err := s.GetOrCreate(ctx, email, current)
	if err != nil {
		return nil, err
	}

	// Single atomic add against the stored counter. Never read-modify-write;
	// concurrent sends from the same identity must not lose updates.
	now := s.clock.Now()
	err = s.db.WithContext(ctx).Exec(
		`UPDATE usage_records
		 SET message_count = message_count + ?, updated_at = ?
		 WHERE email = ? AND year = ? AND month = ?`,
		n,
		now,
		email,
		record.Year,
		record.Month,
	).Error
	if err != nil {
		return nil, err
	}

	return s.records.FindOne(ctx, &usagedomain.UsageRecord{
		Email: email,
		Year:  record.Year,
		Month: record.Month,
	})
}

func (s *Service) History(ctx context.Context, email string, months int) ([]usagedomain.UsageRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, usagedomain.ErrInvalidIdentity
	}
	if months < 1 || months > 24 {
		return nil, usagedomain.ErrInvalidMonths
	}

	rows, err := s.records.Find(ctx, &usagedomain.UsageRecord{Email: email},
		repository.OrderBy("year DESC, month DESC"),
		repository.Limit(months),
	)
	if err != nil {
		return nil, err
	}

	out := make([]usagedomain.UsageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

func (s *Service) TotalAcrossMonths(ctx context.Context, email string) (int, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0, usagedomain.ErrInvalidIdentity
	}

	var total int
	err := s.db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("email = ?", email).
		Select("COALESCE(SUM(message_count), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Service) AverageAcrossMonths(ctx context.Context, email string) (float64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0, usagedomain.ErrInvalidIdentity
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	total, err := s.TotalAcrossMonths(ctx, email)
	if err != nil {
		return 0, err
	}
	return float64(total) / float64(count), nil
}

func (s *Service) currentTier(ctx context.Context, email string) (tier.Tier, error) {
	last, err := s.records.FindOne(ctx, &usagedomain.UsageRecord{Email: email},
		repository.OrderBy("year DESC, month DESC"),
	)
	if err != nil {
		return "", err
	}
	if last == nil {
		return tier.Free, nil
	}
	return last.Tier, nil
}

// nextResetAt returns the first instant (00:00:00 UTC) of the month after now.
func nextResetAt(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
