package domain

import (
	"context"
	"errors"
)

// AppendRequest records one completed exchange: exactly two turns, inbound
// then outbound, plus the resolved classification snapshot.
type AppendRequest struct {
	Email         string
	Inbound       string
	Outbound      string
	LastIntent    string
	LastConnector *string
	LastOrderID   *string
}

type Service interface {
	// Get returns the stored context, or an empty one when the identity has
	// no conversational state yet.
	Get(ctx context.Context, email string) (*Context, error)
	// AppendExchange appends the inbound and outbound turns in that order,
	// trims history to the bound, and updates the classification snapshot.
	// Appends for one identity are serialized.
	AppendExchange(ctx context.Context, req AppendRequest) (*Context, error)
	// SetPreference stores one free-form preference key.
	SetPreference(ctx context.Context, email, key string, value any) error
}

var ErrInvalidIdentity = errors.New("invalid_identity")
