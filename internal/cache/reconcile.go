package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/internal/platform/metrics"
	"playercache/pkg/platform/sentinel"
)

// Reconcile merges records into memory. A record replaces the entry for its
// id, and separately the entry for its name, only when its LastSeen is not
// older than the current one. A renamed id releases its old name only if that
// name still points at it.
//
// With persist set, the records that took their id slot (every record when
// the maps are disabled) are written to the store after the maps are
// unlocked. A failed write is logged and leaves memory as it is.
func (c *Cache) Reconcile(ctx context.Context, records []identity.Record, persist bool) {
	if len(records) == 0 {
		return
	}
	if !persist {
		c.apply(records)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	winners := c.apply(records)
	if c.writer == nil || len(winners) == 0 {
		return
	}
	c.counters.storeUpdates.Add(1)
	c.metrics.IncStoreUpdate()
	if err := c.writer.UpsertIdentities(ctx, winners...); err != nil {
		c.metrics.IncStoreFailure()
		c.logger.ErrorContext(ctx, "failed to persist players", "count", len(winners), "error", err)
	}
}

// apply updates the maps and returns the records that won their id slot.
func (c *Cache) apply(records []identity.Record) []identity.Record {
	if !c.enabled() {
		return records
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	winners := make([]identity.Record, 0, len(records))
	for _, r := range records {
		old, known := c.byID[r.ID]
		if known && !identity.SameName(old.Name, r.Name) {
			oldKey := old.Key()
			if holder, ok := c.byName[oldKey]; ok && holder.ID == r.ID {
				delete(c.byName, oldKey)
			}
		}
		if !known || r.Supersedes(old) {
			c.byID[r.ID] = r
			winners = append(winners, r)
		}
		key := r.Key()
		if holder, ok := c.byName[key]; !ok || r.Supersedes(holder) {
			c.byName[key] = r
		}
	}
	return winners
}

// Peek returns the in-memory entry for id regardless of its age.
func (c *Cache) Peek(id uuid.UUID) (identity.Record, bool) {
	if !c.enabled() {
		return identity.Record{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[id]
	return r, ok
}

// PeekName returns the in-memory entry holding name regardless of its age.
func (c *Cache) PeekName(name string) (identity.Record, bool) {
	if !c.enabled() {
		return identity.Record{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byName[identity.NameKey(name)]
	return r, ok
}

// LookupByID returns the record for id from memory, or from the store on a
// miss. Absence is sentinel.ErrNotFound; a failing store yields
// sentinel.ErrStore.
func (c *Cache) LookupByID(ctx context.Context, id uuid.UUID) (identity.Record, error) {
	c.counters.idLookups.Add(1)
	c.metrics.IncLookup(metrics.KindID)

	if r, ok := c.Peek(id); ok && r.FreshAt(c.now(), c.cfg.MemoryTTL) {
		return r, nil
	}
	if c.querier == nil {
		return identity.Record{}, fmt.Errorf("player %s: %w", id, sentinel.ErrNotFound)
	}

	c.counters.storeQueries.Add(1)
	c.metrics.IncStoreQuery(metrics.KindID)
	r, err := c.querier.IdentityByID(ctx, id)
	if err != nil {
		return identity.Record{}, c.storeError(ctx, err)
	}
	c.Reconcile(ctx, []identity.Record{r}, false)
	return r, nil
}

// LookupByName is LookupByID keyed by name. Memory matches ignore case; the
// store is asked for the exact spelling.
func (c *Cache) LookupByName(ctx context.Context, name string) (identity.Record, error) {
	c.counters.nameLookups.Add(1)
	c.metrics.IncLookup(metrics.KindName)

	if r, ok := c.PeekName(name); ok && r.FreshAt(c.now(), c.cfg.MemoryTTL) {
		return r, nil
	}
	if c.querier == nil {
		return identity.Record{}, fmt.Errorf("player %q: %w", name, sentinel.ErrNotFound)
	}

	c.counters.storeQueries.Add(1)
	c.metrics.IncStoreQuery(metrics.KindName)
	r, err := c.querier.IdentityByName(ctx, name)
	if err != nil {
		return identity.Record{}, c.storeError(ctx, err)
	}
	c.Reconcile(ctx, []identity.Record{r}, false)
	return r, nil
}

// SearchByPartialName finds names containing fragment, ignoring case, most
// recently seen first. Without a queryable store it scans memory.
func (c *Cache) SearchByPartialName(ctx context.Context, fragment string) ([]identity.Record, error) {
	if c.querier != nil {
		c.counters.storeQueries.Add(1)
		c.metrics.IncStoreQuery(metrics.KindName)
		records, err := c.querier.SearchByPartialName(ctx, fragment)
		if err != nil {
			return nil, c.storeError(ctx, err)
		}
		return records, nil
	}

	needle := identity.NameKey(fragment)
	c.mu.RLock()
	var out []identity.Record
	for _, r := range c.byID {
		if strings.Contains(r.Key(), needle) {
			out = append(out, r)
		}
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b identity.Record) int {
		return b.LastSeen.Compare(a.LastSeen)
	})
	return out, nil
}

// storeError keeps absence distinct from failure and records failures.
func (c *Cache) storeError(ctx context.Context, err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	c.metrics.IncStoreFailure()
	c.logger.ErrorContext(ctx, "store query failed", "error", err)
	if errors.Is(err, sentinel.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel.ErrStore, err)
}

// sortIDs orders ids by their most recent association, newest first.
func sortIDs(ids []uuid.UUID, latest map[uuid.UUID]int64) {
	slices.SortStableFunc(ids, func(a, b uuid.UUID) int {
		return cmp.Compare(latest[b], latest[a])
	})
}
