package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/internal/platform/metrics"
	"playercache/pkg/platform/sentinel"
)

// Profile returns the profile for id. A memory copy must be within the local
// TTL and before its expiration; copies failing either are dropped. A store
// copy past its expiration counts as absent.
func (c *Cache) Profile(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	c.counters.profileLookups.Add(1)
	c.metrics.IncLookup(metrics.KindProfile)

	now := c.now()
	if p, ok := c.cachedProfile(id, now); ok {
		return p, nil
	}
	if c.profile == nil {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}

	c.counters.profileQueries.Add(1)
	c.metrics.IncStoreQuery(metrics.KindProfile)
	p, err := c.profile.Profile(ctx, id)
	if err != nil {
		return identity.Profile{}, c.storeError(ctx, err)
	}
	if !p.ValidAt(now) {
		return identity.Profile{}, fmt.Errorf("profile %s expired: %w", id, sentinel.ErrNotFound)
	}
	p = p.WithLoadTime(now)
	c.UpdateProfile(ctx, p, false)
	return p, nil
}

func (c *Cache) cachedProfile(id uuid.UUID, now time.Time) (identity.Profile, bool) {
	if !c.enabled() {
		return identity.Profile{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[id]
	if !ok {
		return identity.Profile{}, false
	}
	if p.FreshAt(now, c.cfg.ProfileLocalTTL) && p.ValidAt(now) {
		return p, true
	}
	delete(c.profiles, id)
	return identity.Profile{}, false
}

// UpdateProfile stores p in memory unless a copy seen more recently is held.
// With persist set, an accepted profile is written to the profile store.
func (c *Cache) UpdateProfile(ctx context.Context, p identity.Profile, persist bool) {
	if !persist {
		c.putProfile(p)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.putProfile(p) || c.profile == nil {
		return
	}
	c.counters.storeUpdates.Add(1)
	c.metrics.IncStoreUpdate()
	if err := c.profile.UpsertProfile(ctx, p); err != nil {
		c.metrics.IncStoreFailure()
		c.logger.ErrorContext(ctx, "failed to persist profile", "uuid", p.ID, "error", err)
	}
}

// putProfile reports whether p was accepted. Every profile is accepted when
// the maps are disabled.
func (c *Cache) putProfile(p identity.Profile) bool {
	if !c.enabled() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.profiles[p.ID]; ok && old.LastSeen.After(p.LastSeen) {
		return false
	}
	c.profiles[p.ID] = p
	return true
}

// EvictProfilesBefore drops memory profiles last seen at or before cutoff.
// It is registered as a maintenance hook with the relational store.
func (c *Cache) EvictProfilesBefore(cutoff time.Time) {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.profiles {
		if !p.LastSeen.After(cutoff) {
			delete(c.profiles, id)
		}
	}
}

// HasProfileStore reports whether profiles are persisted.
func (c *Cache) HasProfileStore() bool {
	return c.profile != nil
}
