// Package resolver talks to the remote identity service that is authoritative for
// player names, ids, name histories and signed profile properties.
package resolver

import (
	"context"

	"github.com/google/uuid"

	"playercache/internal/identity"
)

// Resolver is the remote lookup boundary. Absent players are simply missing from
// the returned maps; single-entity lookups return sentinel.ErrNotFound. Transport
// and protocol failures wrap sentinel.ErrRemote.
type Resolver interface {
	IDsForNames(ctx context.Context, names []string) (map[string]uuid.UUID, error)
	NamesForIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	NameHistory(ctx context.Context, id uuid.UUID) (identity.NameHistory, error)
	Profile(ctx context.Context, id uuid.UUID) ([]identity.Property, error)
}
