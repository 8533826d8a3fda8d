package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/circuit"
	"playercache/pkg/platform/sentinel"
)

// Guarded stops calling the wrapped resolver while its breaker is open. Refused
// calls fail fast with sentinel.ErrUnavailable.
type Guarded struct {
	next    Resolver
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Resolver, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if breaker == nil {
		breaker = circuit.New("resolver")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) IDsForNames(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	var out map[string]uuid.UUID
	err := g.call(ctx, "ids for names", func() (err error) {
		out, err = g.next.IDsForNames(ctx, names)
		return err
	})
	return out, err
}

func (g *Guarded) NamesForIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	var out map[uuid.UUID]string
	err := g.call(ctx, "names for ids", func() (err error) {
		out, err = g.next.NamesForIDs(ctx, ids)
		return err
	})
	return out, err
}

func (g *Guarded) NameHistory(ctx context.Context, id uuid.UUID) (identity.NameHistory, error) {
	var out identity.NameHistory
	err := g.call(ctx, "name history", func() (err error) {
		out, err = g.next.NameHistory(ctx, id)
		return err
	})
	return out, err
}

func (g *Guarded) Profile(ctx context.Context, id uuid.UUID) ([]identity.Property, error) {
	var out []identity.Property
	err := g.call(ctx, "profile", func() (err error) {
		out, err = g.next.Profile(ctx, id)
		return err
	})
	return out, err
}

func (g *Guarded) call(ctx context.Context, op string, fn func() error) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%s: %w", op, sentinel.ErrUnavailable)
	}
	err := fn()
	switch {
	case err == nil || IsAbsent(err):
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "remote resolver recovered", "breaker", g.breaker.Name())
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		// the caller gave up, the remote is not to blame
	default:
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "remote resolver circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
	}
	return err
}

var _ Resolver = (*Guarded)(nil)
