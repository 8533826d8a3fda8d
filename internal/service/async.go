package service

import (
	"context"

	"github.com/google/uuid"

	"playercache/internal/identity"
)

// The Async variants run the lookup, remote resolution included, on the worker
// pool and hand the result to callback through the Executor. A dispatched
// lookup is never cancelled; callers wanting a deadline ignore late callbacks.
// Callbacks are not invoked for work submitted after Close.

func (s *Service) PlayerByNameAsync(ctx context.Context, name string, callback func(identity.Record, bool)) {
	s.async(ctx, func(ctx context.Context) func() {
		r, ok := s.PlayerByName(ctx, name, true)
		return func() { callback(r, ok) }
	})
}

func (s *Service) PlayerByIDAsync(ctx context.Context, id uuid.UUID, callback func(identity.Record, bool)) {
	s.async(ctx, func(ctx context.Context) func() {
		r, ok := s.PlayerByID(ctx, id, true)
		return func() { callback(r, ok) }
	})
}

func (s *Service) NameHistoryAsync(ctx context.Context, id uuid.UUID, callback func(identity.NameHistory, bool)) {
	s.async(ctx, func(ctx context.Context) func() {
		h, ok := s.NameHistory(ctx, id, true)
		return func() { callback(h, ok) }
	})
}

func (s *Service) ProfileAsync(ctx context.Context, id uuid.UUID, callback func(identity.Profile, bool)) {
	s.async(ctx, func(ctx context.Context) func() {
		p, ok := s.Profile(ctx, id, true)
		return func() { callback(p, ok) }
	})
}

// async detaches work from ctx cancellation but keeps its values.
func (s *Service) async(ctx context.Context, work func(ctx context.Context) func()) {
	detached := context.WithoutCancel(ctx)
	err := s.pool.Submit(func(context.Context) {
		done := work(detached)
		if done != nil {
			s.exec.Execute(done)
		}
	})
	if err != nil {
		s.logger.WarnContext(ctx, "async lookup dropped", "error", err)
	}
}
