package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
	pstrings "playercache/pkg/platform/strings"
)

// PlayerByName returns the player currently holding name. With resolve set a
// miss is asked of the remote resolver and the answer cached and persisted.
func (s *Service) PlayerByName(ctx context.Context, name string, resolve bool) (identity.Record, bool) {
	if r, ok := s.lookupName(ctx, name); ok {
		return r, true
	}
	if !resolve {
		return identity.Record{}, false
	}
	return s.ResolveName(ctx, name)
}

// PlayerByID returns the player with id, resolving a miss remotely when asked.
func (s *Service) PlayerByID(ctx context.Context, id uuid.UUID, resolve bool) (identity.Record, bool) {
	r, err := s.cache.LookupByID(ctx, id)
	if err == nil {
		return r, true
	}
	if !resolve {
		return identity.Record{}, false
	}
	return s.ResolveID(ctx, id)
}

// PlayerByNameOrID treats a 36 character key that parses as an id as an id,
// and anything else as a name.
func (s *Service) PlayerByNameOrID(ctx context.Context, key string, resolve bool) (identity.Record, bool) {
	key = strings.TrimSpace(key)
	if len(key) == 36 {
		if id, err := uuid.Parse(key); err == nil {
			return s.PlayerByID(ctx, id, resolve)
		}
	}
	return s.PlayerByName(ctx, key, resolve)
}

// PlayersByNames looks every distinct name up individually and resolves all
// misses with a single remote call. Unknown names are left out.
func (s *Service) PlayersByNames(ctx context.Context, names []string, resolve bool) []identity.Record {
	names = pstrings.DedupeAndTrimBy(names, identity.NameKey)
	out := make([]identity.Record, 0, len(names))
	var missing []string
	for _, name := range names {
		if r, ok := s.lookupName(ctx, name); ok {
			out = append(out, r)
			continue
		}
		missing = append(missing, name)
	}
	if !resolve || len(missing) == 0 || s.resolver == nil {
		return out
	}

	s.cache.CountRemote()
	found, err := s.resolver.IDsForNames(ctx, missing)
	if err != nil {
		s.remoteFailed(ctx, "ids for names", err)
	}
	if len(found) == 0 {
		return out
	}
	now := s.now(ctx)
	batch := make([]identity.Record, 0, len(found))
	for name, id := range found {
		batch = append(batch, identity.NewRecord(id, name, now, now))
	}
	s.cache.Reconcile(ctx, batch, true)
	return append(out, batch...)
}

// ResolveName asks the remote resolver for name regardless of what is cached.
func (s *Service) ResolveName(ctx context.Context, name string) (identity.Record, bool) {
	if s.resolver == nil {
		return identity.Record{}, false
	}
	name = strings.TrimSpace(name)
	v, err, _ := s.group.Do("name:"+identity.NameKey(name), func() (any, error) {
		s.cache.CountRemote()
		found, err := s.resolver.IDsForNames(ctx, []string{name})
		if err != nil {
			return nil, err
		}
		for got, id := range found {
			if !identity.SameName(got, name) {
				continue
			}
			now := s.now(ctx)
			r := identity.NewRecord(id, got, now, now)
			s.cache.Reconcile(ctx, []identity.Record{r}, true)
			return r, nil
		}
		return nil, fmt.Errorf("player %q: %w", name, sentinel.ErrNotFound)
	})
	if err != nil {
		s.remoteFailed(ctx, "ids for names", err)
		return identity.Record{}, false
	}
	return v.(identity.Record), true
}

// ResolveID asks the remote resolver for the current name of id.
func (s *Service) ResolveID(ctx context.Context, id uuid.UUID) (identity.Record, bool) {
	if s.resolver == nil {
		return identity.Record{}, false
	}
	v, err, _ := s.group.Do("id:"+id.String(), func() (any, error) {
		s.cache.CountRemote()
		found, err := s.resolver.NamesForIDs(ctx, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		name, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("player %s: %w", id, sentinel.ErrNotFound)
		}
		now := s.now(ctx)
		r := identity.NewRecord(id, name, now, now)
		s.cache.Reconcile(ctx, []identity.Record{r}, true)
		return r, nil
	})
	if err != nil {
		s.remoteFailed(ctx, "names for ids", err)
		return identity.Record{}, false
	}
	return v.(identity.Record), true
}

// SearchPlayers lists players whose name contains fragment, most recently
// seen first. A failing store yields no results.
func (s *Service) SearchPlayers(ctx context.Context, fragment string) []identity.Record {
	records, err := s.cache.SearchByPartialName(ctx, strings.TrimSpace(fragment))
	if err != nil {
		return nil
	}
	return records
}

// IDsEverNamed lists every id that held name at some point, current holder
// included.
func (s *Service) IDsEverNamed(ctx context.Context, name string) []uuid.UUID {
	return s.cache.IDsEverNamed(ctx, strings.TrimSpace(name))
}

// lookupName consults memory and store. Store failures were already logged by
// the cache and count as a miss here.
func (s *Service) lookupName(ctx context.Context, name string) (identity.Record, bool) {
	r, err := s.cache.LookupByName(ctx, name)
	if err != nil {
		return identity.Record{}, false
	}
	return r, true
}
