package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/tinylojas/conversa/internal/clock"
	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
	"github.com/tinylojas/conversa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	contexts repository.Repository[convdomain.Context]

	// Per-identity append locks. The storage layer gives no ordering
	// guarantee for concurrent appends from the same identity (rapid
	// double-send), so appends are serialized here.
	locks sync.Map
}

func NewService(p Params) convdomain.Service {
	return &Service{
		log:      p.Log.Named("conversation.service"),
		clock:    p.Clock,
		contexts: repository.ProvideStore[convdomain.Context](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, email string) (*convdomain.Context, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, convdomain.ErrInvalidIdentity
	}

	stored, err := s.contexts.FindOne(ctx, &convdomain.Context{Email: email})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		now := s.clock.Now()
		return &convdomain.Context{Email: email, CreatedAt: now, UpdatedAt: now}, nil
	}
	return stored, nil
}

func (s *Service) AppendExchange(ctx context.Context, req convdomain.AppendRequest) (*convdomain.Context, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, convdomain.ErrInvalidIdentity
	}

	lock := s.lockFor(email)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.contexts.FindOne(ctx, &convdomain.Context{Email: email})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	isNew := stored == nil
	if isNew {
		stored = &convdomain.Context{Email: email, CreatedAt: now}
	}

	turns := stored.Turns()
	turns = append(turns,
		convdomain.Turn{Role: "user", Text: req.Inbound, At: now},
		convdomain.Turn{Role: "assistant", Text: req.Outbound, At: now},
	)
	if len(turns) > convdomain.MaxHistoryTurns {
		turns = turns[len(turns)-convdomain.MaxHistoryTurns:]
	}

	encoded, err := json.Marshal(turns)
	if err != nil {
		return nil, err
	}

	stored.History = datatypes.JSON(encoded)
	stored.LastIntent = req.LastIntent
	if req.LastConnector != nil {
		stored.LastConnector = req.LastConnector
	}
	if req.LastOrderID != nil {
		stored.LastOrderID = req.LastOrderID
	}
	stored.UpdatedAt = now

	if isNew {
		if err := s.contexts.Create(ctx, stored); err != nil {
			return nil, err
		}
		return stored, nil
	}
	if err := s.contexts.Save(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Service) SetPreference(ctx context.Context, email, key string, value any) error {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(key) == "" {
		return convdomain.ErrInvalidIdentity
	}

	lock := s.lockFor(email)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.contexts.FindOne(ctx, &convdomain.Context{Email: email})
	if err != nil {
		return err
	}
	now := s.clock.Now()
	isNew := stored == nil
	if isNew {
		stored = &convdomain.Context{Email: email, CreatedAt: now}
	}
	if stored.Preferences == nil {
		stored.Preferences = datatypes.JSONMap{}
	}
	stored.Preferences[key] = value
	stored.UpdatedAt = now

	if isNew {
		return s.contexts.Create(ctx, stored)
	}
	return s.contexts.Save(ctx, stored)
}

func (s *Service) lockFor(email string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(email, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
