package cache

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/internal/platform/metrics"
	"playercache/pkg/platform/sentinel"
)

// NameHistory returns the name history for id. bypassMemory forces a store
// read when a history store is configured.
func (c *Cache) NameHistory(ctx context.Context, id uuid.UUID, bypassMemory bool) (identity.NameHistory, error) {
	c.counters.historyLookups.Add(1)
	c.metrics.IncLookup(metrics.KindHistory)

	if !bypassMemory || c.history == nil {
		if h, ok := c.peekHistory(id); ok && h.FreshAt(c.now(), c.cfg.MemoryTTL) {
			return h, nil
		}
	}
	if c.history == nil {
		return identity.NameHistory{}, fmt.Errorf("name history %s: %w", id, sentinel.ErrNotFound)
	}

	c.counters.storeQueries.Add(1)
	c.metrics.IncStoreQuery(metrics.KindHistory)
	h, err := c.history.NameHistory(ctx, id)
	if err != nil {
		return identity.NameHistory{}, c.storeError(ctx, err)
	}
	return c.UpdateHistory(ctx, h.WithLoadTime(c.now()), false), nil
}

func (c *Cache) peekHistory(id uuid.UUID) (identity.NameHistory, bool) {
	if !c.enabled() {
		return identity.NameHistory{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.histories[id]
	return h, ok
}

// UpdateHistory replaces the in-memory history for its id and, with persist
// set, writes it to the history store. A memory copy holding a later change
// than h is kept and h is not persisted. It returns the history now in effect.
func (c *Cache) UpdateHistory(ctx context.Context, h identity.NameHistory, persist bool) identity.NameHistory {
	if !persist {
		kept, _ := c.putHistory(h)
		return kept
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	kept, replaced := c.putHistory(h)
	if !replaced {
		c.logger.DebugContext(ctx, "kept newer name history", "uuid", h.ID())
		return kept
	}
	if c.history == nil {
		return kept
	}
	c.counters.storeUpdates.Add(1)
	c.metrics.IncStoreUpdate()
	if err := c.history.UpsertNameHistory(ctx, h); err != nil {
		c.metrics.IncStoreFailure()
		c.logger.ErrorContext(ctx, "failed to persist name history", "uuid", h.ID(), "error", err)
	}
	return kept
}

func (c *Cache) putHistory(h identity.NameHistory) (identity.NameHistory, bool) {
	if !c.enabled() {
		return h, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.histories[h.ID()]; ok && cur.Supersedes(h) {
		return cur, false
	}
	c.histories[h.ID()] = h
	return h, true
}

// IDsEverNamed lists the ids that ever held name, most recently associated
// first, including whoever holds it now. When the history store fails the
// in-memory histories are scanned instead.
func (c *Cache) IDsEverNamed(ctx context.Context, name string) []uuid.UUID {
	var (
		ids    []uuid.UUID
		fromDB bool
	)
	if c.history != nil {
		c.counters.storeQueries.Add(1)
		c.metrics.IncStoreQuery(metrics.KindHistory)
		found, err := c.history.FindIDsEverNamed(ctx, name)
		if err != nil {
			_ = c.storeError(ctx, err)
		} else {
			ids, fromDB = found, true
		}
	}
	if !fromDB {
		ids = c.scanHistories(name)
	}

	current, err := c.LookupByName(ctx, name)
	if err == nil && !slices.Contains(ids, current.ID) {
		ids = append([]uuid.UUID{current.ID}, ids...)
	}
	return ids
}

// scanHistories matches name exactly against every cached history.
func (c *Cache) scanHistories(name string) []uuid.UUID {
	if !c.enabled() {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	latest := make(map[uuid.UUID]int64)
	var ids []uuid.UUID
	for id, h := range c.histories {
		if !h.HasName(name) {
			continue
		}
		var at int64
		for _, change := range h.Changes() {
			if change.NewName == name {
				at = max(at, change.Date.UnixMilli())
			}
		}
		latest[id] = at
		ids = append(ids, id)
	}
	sortIDs(ids, latest)
	return ids
}
