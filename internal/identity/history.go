package identity

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// NameChange records that a player adopted NewName at Date.
type NameChange struct {
	NewName string
	Date    time.Time
}

// NameHistory is the immutable, date-ordered list of names an id has held.
type NameHistory struct {
	id            uuid.UUID
	firstName     string
	changes       []NameChange
	cacheLoadTime time.Time
}

// NewNameHistory sorts changes by date. When several changes share a date only
// the one appearing last in the input is kept.
func NewNameHistory(id uuid.UUID, firstName string, changes []NameChange, cacheLoadTime time.Time) NameHistory {
	sorted := make([]NameChange, len(changes))
	for i, c := range changes {
		sorted[i] = NameChange{NewName: c.NewName, Date: Millis(c.Date)}
	}
	slices.SortStableFunc(sorted, func(a, b NameChange) int {
		return a.Date.Compare(b.Date)
	})

	deduped := sorted[:0]
	for _, c := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(c.Date) {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	return NameHistory{
		id:            id,
		firstName:     firstName,
		changes:       deduped,
		cacheLoadTime: Millis(cacheLoadTime),
	}
}

func (h NameHistory) ID() uuid.UUID            { return h.id }
func (h NameHistory) FirstName() string        { return h.firstName }
func (h NameHistory) CacheLoadTime() time.Time { return h.cacheLoadTime }

// Changes returns a copy of the changes in ascending date order.
func (h NameHistory) Changes() []NameChange {
	return slices.Clone(h.changes)
}

// NameAt returns the name held at t. Before the first change (or with no
// changes) that is the first name; a change dated exactly t is already in
// effect.
func (h NameHistory) NameAt(t time.Time) string {
	// index of the first change strictly after t
	i := sort.Search(len(h.changes), func(i int) bool {
		return h.changes[i].Date.After(t)
	})
	if i == 0 {
		return h.firstName
	}
	return h.changes[i-1].NewName
}

// CurrentName is the most recently adopted name.
func (h NameHistory) CurrentName() string {
	if len(h.changes) == 0 {
		return h.firstName
	}
	return h.changes[len(h.changes)-1].NewName
}

// LatestChange returns the most recent change, if any.
func (h NameHistory) LatestChange() (NameChange, bool) {
	if len(h.changes) == 0 {
		return NameChange{}, false
	}
	return h.changes[len(h.changes)-1], true
}

// Supersedes reports whether h knows of a change later than every change in
// other.
func (h NameHistory) Supersedes(other NameHistory) bool {
	mine, ok := h.LatestChange()
	if !ok {
		return false
	}
	theirs, ok := other.LatestChange()
	return !ok || mine.Date.After(theirs.Date)
}

// HasName reports whether the id ever held name (exact match).
func (h NameHistory) HasName(name string) bool {
	if h.firstName == name {
		return true
	}
	for _, c := range h.changes {
		if c.NewName == name {
			return true
		}
	}
	return false
}

// WithChange returns a new history with change added.
func (h NameHistory) WithChange(change NameChange, cacheLoadTime time.Time) NameHistory {
	changes := append(slices.Clone(h.changes), change)
	return NewNameHistory(h.id, h.firstName, changes, cacheLoadTime)
}

// WithLoadTime returns a copy of h stamped with a new cache load time.
func (h NameHistory) WithLoadTime(t time.Time) NameHistory {
	h.cacheLoadTime = Millis(t)
	return h
}

// FreshAt mirrors Record.FreshAt for cached histories.
func (h NameHistory) FreshAt(now time.Time, ttl time.Duration) bool {
	if ttl < 0 {
		return true
	}
	return h.cacheLoadTime.Add(ttl).After(now)
}
