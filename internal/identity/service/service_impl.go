package service

import (
	"context"
	"strings"

	"github.com/tinylojas/conversa/internal/cache"
	"github.com/tinylojas/conversa/internal/clock"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/tier"
	"github.com/tinylojas/conversa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	identities repository.Repository[identitydomain.Identity]
	mappings   repository.Repository[identitydomain.ChannelMapping]
	resolved   cache.IdentityResolverCache
}

func NewService(p Params) identitydomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("identity.service"),
		clock:      p.Clock,
		identities: repository.ProvideStore[identitydomain.Identity](p.DB),
		mappings:   repository.ProvideStore[identitydomain.ChannelMapping](p.DB),
		resolved:   cache.NewIdentityResolverCache(),
	}
}

func (s *Service) Resolve(ctx context.Context, channel, channelID string) (string, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	channelID = strings.TrimSpace(channelID)
	if channel == "" {
		return "", identitydomain.ErrInvalidChannel
	}
	if channelID == "" {
		return "", identitydomain.ErrInvalidChannelID
	}

	if s.resolved != nil {
		if email, ok := s.resolved.GetEmail(channel, channelID); ok {
			return email, nil
		}
	}

	mapping, err := s.mappings.FindOne(ctx, &identitydomain.ChannelMapping{
		Channel:   channel,
		ChannelID: channelID,
	})
	if err != nil {
		return "", err
	}
	if mapping == nil {
		return "", identitydomain.ErrIdentityNotFound
	}

	if s.resolved != nil {
		s.resolved.SetEmail(channel, channelID, mapping.Email)
	}
	return mapping.Email, nil
}

func (s *Service) Bind(ctx context.Context, req identitydomain.BindRequest) (*identitydomain.ChannelMapping, error) {
	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	channelID := strings.TrimSpace(req.ChannelID)
	email := normalizeEmail(req.Email)
	if channel == "" {
		return nil, identitydomain.ErrInvalidChannel
	}
	if channelID == "" {
		return nil, identitydomain.ErrInvalidChannelID
	}
	if email == "" {
		return nil, identitydomain.ErrInvalidEmail
	}

	existing, err := s.identities.FindOne(ctx, &identitydomain.Identity{Email: email})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, identitydomain.ErrIdentityNotFound
	}

	now := s.clock.Now()
	mapping := identitydomain.ChannelMapping{
		Channel:   channel,
		ChannelID: channelID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Metadata != nil {
		mapping.Metadata = datatypes.JSONMap(req.Metadata)
	}

	// Re-bind is an explicit upsert on the (channel, channel_id) key; the
	// caller decided, so the previous binding is replaced rather than kept.
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "metadata", "updated_at"}),
	}).Create(&mapping).Error
	if err != nil {
		return nil, err
	}

	if s.resolved != nil {
		s.resolved.Invalidate(channel, channelID)
	}

	s.log.Info("channel bound",
		zap.String("channel", channel),
		zap.String("email", email),
	)
	return &mapping, nil
}

func (s *Service) ChannelsFor(ctx context.Context, email string) (map[string]string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, identitydomain.ErrInvalidEmail
	}

	mappings, err := s.mappings.Find(ctx, &identitydomain.ChannelMapping{Email: email})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		out[m.Channel] = m.ChannelID
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, email string) (*identitydomain.Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, identitydomain.ErrInvalidEmail
	}

	id, err := s.identities.FindOne(ctx, &identitydomain.Identity{Email: email})
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, identitydomain.ErrIdentityNotFound
	}
	return id, nil
}

func (s *Service) Create(ctx context.Context, email string, t tier.Tier) (*identitydomain.Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, identitydomain.ErrInvalidEmail
	}
	if !tier.Validate(t) {
		return nil, tier.ErrInvalidTier
	}

	now := s.clock.Now()
	id := identitydomain.Identity{
		Email:     email,
		Tier:      t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.identities.Create(ctx, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *Service) SetTier(ctx context.Context, email string, t tier.Tier) (*identitydomain.Identity, error) {
	if !tier.Validate(t) {
		return nil, tier.ErrInvalidTier
	}

	id, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	id.Tier = t
	id.UpdatedAt = s.clock.Now()
	if err := s.identities.Save(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
