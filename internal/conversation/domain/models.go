// Package domain contains the per-identity conversational state.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// MaxHistoryTurns bounds the stored conversation history. Older turns are
// trimmed from the front on append.
const MaxHistoryTurns = 40

type Turn struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Context is the conversational state for one identity. It is written once
// per processed message, after the reply is known.
type Context struct {
	Email         string            `gorm:"primaryKey;type:text" json:"email"`
	LastIntent    string            `gorm:"type:text" json:"last_intent"`
	LastConnector *string           `gorm:"type:text" json:"last_connector,omitempty"`
	LastOrderID   *string           `gorm:"type:text" json:"last_order_id,omitempty"`
	History       datatypes.JSON    `gorm:"type:jsonb" json:"history,omitempty"`
	Preferences   datatypes.JSONMap `gorm:"type:jsonb" json:"preferences,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Context) TableName() string { return "conversation_contexts" }

// Turns decodes the stored history. A missing or corrupt history decodes to
// an empty slice rather than failing the message path.
func (c *Context) Turns() []Turn {
	if len(c.History) == 0 {
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal(c.History, &turns); err != nil {
		return nil
	}
	return turns
}
