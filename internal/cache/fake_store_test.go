package cache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

var errBoom = fmt.Errorf("connection reset: %w", sentinel.ErrStore)

// fakeStore is an in-memory Writer, Querier, HistoryStore and ProfileStore.
type fakeStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]identity.Record
	histories map[uuid.UUID]identity.NameHistory
	profiles  map[uuid.UUID]identity.Profile
	batches   [][]identity.Record
	queries   int
	failWrite bool
	failRead  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:   map[uuid.UUID]identity.Record{},
		histories: map[uuid.UUID]identity.NameHistory{},
		profiles:  map[uuid.UUID]identity.Profile{},
	}
}

func (f *fakeStore) UpsertIdentities(_ context.Context, records ...identity.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, slices.Clone(records))
	if f.failWrite {
		return errBoom
	}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return nil
}

func (f *fakeStore) IdentityByID(_ context.Context, id uuid.UUID) (identity.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failRead {
		return identity.Record{}, errBoom
	}
	r, ok := f.records[id]
	if !ok {
		return identity.Record{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) IdentityByName(_ context.Context, name string) (identity.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failRead {
		return identity.Record{}, errBoom
	}
	var (
		best  identity.Record
		found bool
	)
	for _, r := range f.records {
		if r.Name == name && (!found || r.LastSeen.After(best.LastSeen)) {
			best, found = r, true
		}
	}
	if !found {
		return identity.Record{}, sentinel.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) SearchByPartialName(_ context.Context, fragment string) ([]identity.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	var out []identity.Record
	for _, r := range f.records {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(fragment)) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b identity.Record) int { return b.LastSeen.Compare(a.LastSeen) })
	return out, nil
}

func (f *fakeStore) UpsertNameHistory(_ context.Context, h identity.NameHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errBoom
	}
	f.histories[h.ID()] = h
	return nil
}

func (f *fakeStore) NameHistory(_ context.Context, id uuid.UUID) (identity.NameHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failRead {
		return identity.NameHistory{}, errBoom
	}
	h, ok := f.histories[id]
	if !ok {
		return identity.NameHistory{}, sentinel.ErrNotFound
	}
	return h, nil
}

func (f *fakeStore) FindIDsEverNamed(_ context.Context, name string) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failRead {
		return nil, errBoom
	}
	var ids []uuid.UUID
	for id, h := range f.histories {
		if h.HasName(name) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, p identity.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errBoom
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeStore) Profile(_ context.Context, id uuid.UUID) (identity.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failRead {
		return identity.Profile{}, errBoom
	}
	p, ok := f.profiles[id]
	if !ok {
		return identity.Profile{}, sentinel.ErrNotFound
	}
	return p, nil
}

// writerOnly hides the query methods, like the binary file store.
func writerOnly(f *fakeStore) Writer {
	return struct{ Writer }{f}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(ms int64) *clock {
	return &clock{now: time.UnixMilli(ms).UTC()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
