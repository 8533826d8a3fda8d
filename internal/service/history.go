package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"playercache/internal/events"
	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

// NameHistory returns the cached or stored history for id, falling back to
// the remote resolver when resolve is set.
func (s *Service) NameHistory(ctx context.Context, id uuid.UUID, resolve bool) (identity.NameHistory, bool) {
	h, err := s.cache.NameHistory(ctx, id, false)
	if err == nil {
		return h, true
	}
	if !resolve {
		return identity.NameHistory{}, false
	}
	return s.resolveHistory(ctx, id)
}

func (s *Service) resolveHistory(ctx context.Context, id uuid.UUID) (identity.NameHistory, bool) {
	if s.resolver == nil {
		return identity.NameHistory{}, false
	}
	v, err, _ := s.group.Do("history:"+id.String(), func() (any, error) {
		s.cache.CountRemote()
		h, err := s.resolver.NameHistory(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.cache.UpdateHistory(ctx, h, true), nil
	})
	if err != nil {
		s.remoteFailed(ctx, "name history", err)
		return identity.NameHistory{}, false
	}
	return v.(identity.NameHistory), true
}

// OnPlayerSeen records that the host saw id connected under name at ts. The
// identity is reconciled and persisted before it returns. The name history is
// checked against the observed name: on a mismatch the stored copy is
// re-read, and if it still disagrees a change is appended, persisted and
// published. Sightings dated no later than the latest known change never
// append.
func (s *Service) OnPlayerSeen(ctx context.Context, id uuid.UUID, name string, ts time.Time) {
	name = strings.TrimSpace(name)
	now := s.now(ctx)
	s.cache.Reconcile(ctx, []identity.Record{identity.NewRecord(id, name, ts, now)}, true)

	h, err := s.cache.NameHistory(ctx, id, false)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.startHistory(ctx, id, name, now)
		return
	}
	if err != nil {
		return
	}
	at := now
	if ts.After(at) {
		at = ts
	}
	if h.NameAt(at) == name {
		return
	}
	if fresh, err := s.cache.NameHistory(ctx, id, true); err == nil {
		h = fresh
		if h.NameAt(at) == name {
			return
		}
	}

	if last, ok := h.LatestChange(); ok && !identity.Millis(ts).After(last.Date) {
		s.logger.DebugContext(ctx, "ignored out-of-order sighting", "uuid", id, "name", name)
		return
	}

	old := h.NameAt(at)
	change := identity.NameChange{NewName: name, Date: ts}
	if s.cache.UpdateHistory(ctx, h.WithChange(change, now), true).NameAt(at) != name {
		return
	}
	s.logger.InfoContext(ctx, "player name changed", "uuid", id, "old_name", old, "new_name", name)
	if s.events != nil {
		s.events.Emit(events.NameChanged{ID: id, OldName: old, NewName: name, At: identity.Millis(ts)})
	}
}

// startHistory creates the first history for id: fetched remotely in the
// background when a resolver exists, otherwise starting at name.
func (s *Service) startHistory(ctx context.Context, id uuid.UUID, name string, now time.Time) {
	if s.resolver != nil {
		detached := context.WithoutCancel(ctx)
		s.pool.Go(func(context.Context) {
			if _, ok := s.resolveHistory(detached, id); !ok {
				s.keepHistoryIfAbsent(detached, identity.NewNameHistory(id, name, nil, s.now(detached)))
			}
		})
		return
	}
	s.cache.UpdateHistory(ctx, identity.NewNameHistory(id, name, nil, now), true)
}

// keepHistoryIfAbsent stores h unless a history for its id is already known.
func (s *Service) keepHistoryIfAbsent(ctx context.Context, h identity.NameHistory) {
	if _, err := s.cache.NameHistory(ctx, h.ID(), false); err == nil {
		return
	}
	s.cache.UpdateHistory(ctx, h, true)
}
