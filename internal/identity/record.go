// Package identity holds the value types shared by the cache, its stores and
// the resolution service: identity records, name histories and profiles.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Record binds a player name to an id as of LastSeen.
//
// CacheLoadTime records when this copy entered the local cache. It is never
// persisted and never used to order records.
type Record struct {
	ID            uuid.UUID
	Name          string
	LastSeen      time.Time
	CacheLoadTime time.Time
}

// NewRecord builds a record with both timestamps truncated to milliseconds.
func NewRecord(id uuid.UUID, name string, lastSeen, cacheLoadTime time.Time) Record {
	return Record{
		ID:            id,
		Name:          name,
		LastSeen:      Millis(lastSeen),
		CacheLoadTime: Millis(cacheLoadTime),
	}
}

// Supersedes reports whether r may replace old: its LastSeen is not earlier.
func (r Record) Supersedes(old Record) bool {
	return !r.LastSeen.Before(old.LastSeen)
}

// Key is the case-folded name used for name lookups.
func (r Record) Key() string {
	return NameKey(r.Name)
}

// FreshAt reports whether a cached copy is still usable at now. A negative ttl
// means copies never go stale.
func (r Record) FreshAt(now time.Time, ttl time.Duration) bool {
	if ttl < 0 {
		return true
	}
	return r.CacheLoadTime.Add(ttl).After(now)
}

// WithLoadTime returns a copy of r stamped with a new cache load time.
func (r Record) WithLoadTime(t time.Time) Record {
	r.CacheLoadTime = Millis(t)
	return r
}

// Millis truncates t to millisecond precision in UTC, the resolution every
// store keeps.
func Millis(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}
