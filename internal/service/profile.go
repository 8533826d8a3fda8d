package service

import (
	"context"

	"github.com/google/uuid"

	"playercache/internal/identity"
)

// Profile returns the signed properties of id while they are valid, fetching
// them remotely when resolve is set.
func (s *Service) Profile(ctx context.Context, id uuid.UUID, resolve bool) (identity.Profile, bool) {
	p, err := s.cache.Profile(ctx, id)
	if err == nil {
		return p, true
	}
	if !resolve || s.resolver == nil {
		return identity.Profile{}, false
	}
	v, err, _ := s.group.Do("profile:"+id.String(), func() (any, error) {
		s.cache.CountRemote()
		props, err := s.resolver.Profile(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.StoreProfile(ctx, id, props), nil
	})
	if err != nil {
		s.remoteFailed(ctx, "profile", err)
		return identity.Profile{}, false
	}
	return v.(identity.Profile), true
}

// StoreProfile records properties the host obtained itself, for example from
// a login handshake, as seen now.
func (s *Service) StoreProfile(ctx context.Context, id uuid.UUID, props []identity.Property) identity.Profile {
	now := s.now(ctx)
	p := identity.NewProfile(id, props, now, now, s.cache.Config().ProfileTTL)
	s.cache.UpdateProfile(ctx, p, true)
	return p
}
