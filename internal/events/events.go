// Package events publishes name-change notifications observed by the cache.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NameChanged is emitted when a player is seen under a name that differs from
// the current entry of their name history.
type NameChanged struct {
	ID      uuid.UUID `json:"id"`
	OldName string    `json:"old_name"`
	NewName string    `json:"new_name"`
	At      time.Time `json:"at"`
}

// Publisher delivers one event synchronously.
type Publisher interface {
	Publish(ctx context.Context, e NameChanged) error
}

// Sink accepts events without blocking the caller. Emit reports false when the
// event was dropped.
type Sink interface {
	Emit(e NameChanged) bool
}
