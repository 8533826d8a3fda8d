// Package cache is the in-memory identity layer. It owns the id and name maps,
// the name history and profile maps, and decides which durable store is asked
// on a miss.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/internal/platform/metrics"
)

// Writer receives reconciled identity records.
type Writer interface {
	UpsertIdentities(ctx context.Context, records ...identity.Record) error
}

// Querier is implemented by stores that can answer identity lookups.
type Querier interface {
	IdentityByID(ctx context.Context, id uuid.UUID) (identity.Record, error)
	IdentityByName(ctx context.Context, name string) (identity.Record, error)
	SearchByPartialName(ctx context.Context, fragment string) ([]identity.Record, error)
}

// HistoryStore is implemented by stores that persist name histories.
type HistoryStore interface {
	UpsertNameHistory(ctx context.Context, h identity.NameHistory) error
	NameHistory(ctx context.Context, id uuid.UUID) (identity.NameHistory, error)
	FindIDsEverNamed(ctx context.Context, name string) ([]uuid.UUID, error)
}

// ProfileStore persists profile properties.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, p identity.Profile) error
	Profile(ctx context.Context, id uuid.UUID) (identity.Profile, error)
}

// Config controls memory retention.
type Config struct {
	// MemoryTTL bounds how long identity and history entries are trusted.
	// Negative keeps them forever; zero disables the in-memory maps.
	MemoryTTL time.Duration
	// ProfileTTL is the base lifetime used to build profile expirations.
	ProfileTTL time.Duration
	// ProfileLocalTTL bounds how long this process trusts its own profile copy.
	ProfileLocalTTL time.Duration
}

// Cache is safe for concurrent use.
type Cache struct {
	cfg Config

	// mu guards the maps below. Store I/O never happens while it is held.
	mu        sync.RWMutex
	byID      map[uuid.UUID]identity.Record
	byName    map[string]identity.Record
	histories map[uuid.UUID]identity.NameHistory
	profiles  map[uuid.UUID]identity.Profile

	// writeMu orders persisted batches so the store sees them in the order
	// they were applied to memory.
	writeMu sync.Mutex

	writer   Writer
	querier  Querier
	history  HistoryStore
	profile  ProfileStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	counters counters
}

type Option func(*Cache)

// WithStore sets the durable identity store. Query and history capabilities
// are picked up when the store implements Querier or HistoryStore.
func WithStore(w Writer) Option {
	return func(c *Cache) {
		c.writer = w
		if q, ok := w.(Querier); ok {
			c.querier = q
		}
		if h, ok := w.(HistoryStore); ok {
			c.history = h
		}
	}
}

func WithProfileStore(p ProfileStore) Option {
	return func(c *Cache) {
		c.profile = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache. Without WithStore it is memory only.
func New(cfg Config, opts ...Option) *Cache {
	c := &Cache{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	if cfg.MemoryTTL != 0 {
		c.byID = make(map[uuid.UUID]identity.Record)
		c.byName = make(map[string]identity.Record)
		c.histories = make(map[uuid.UUID]identity.NameHistory)
		c.profiles = make(map[uuid.UUID]identity.Profile)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Config returns the configuration the cache was built with.
func (c *Cache) Config() Config {
	return c.cfg
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}

// enabled reports whether the in-memory maps exist.
func (c *Cache) enabled() bool {
	return c.byID != nil
}

// HasQuerier reports whether misses can be answered by a durable store.
func (c *Cache) HasQuerier() bool {
	return c.querier != nil
}

// Size returns the number of ids held in memory.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
