// Package redisstore keeps profile properties in Redis so that several
// servers can share them. Each profile is a hash that Redis expires on its
// own at the profile's expiration.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

var profileReadDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "playercache_redis_profile_read_duration_ms",
	Help:    "Latency of profile reads from Redis in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	defaultKeyPrefix = "playercache:profile:"

	fieldProperties = "properties"
	fieldLastSeen   = "last_seen"
)

// ProfileStore is a Redis-backed profile store.
type ProfileStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*ProfileStore)

// WithKeyPrefix namespaces the profile keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *ProfileStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ProfileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a profile store; ttl is the base profile lifetime.
func New(client *redis.Client, ttl time.Duration, opts ...Option) *ProfileStore {
	s := &ProfileStore{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *ProfileStore) key(id uuid.UUID) string {
	return s.prefix + id.String()
}

// UpsertProfile writes the profile and schedules its expiry.
func (s *ProfileStore) UpsertProfile(ctx context.Context, p identity.Profile) error {
	blob, err := identity.EncodeProperties(p.Properties)
	if err != nil {
		return err
	}
	key := s.key(p.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldProperties, string(blob), fieldLastSeen, p.LastSeen.UnixMilli())
		pipe.ExpireAt(ctx, key, p.Expiration)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert profile: %w: %w", sentinel.ErrStore, err)
	}
	return nil
}

// Profile loads the profile for id.
func (s *ProfileStore) Profile(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	start := time.Now()
	defer func() {
		profileReadDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return identity.Profile{}, fmt.Errorf("get profile: %w: %w", sentinel.ErrStore, err)
	}
	if len(fields) == 0 {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}

	lastSeen, err := strconv.ParseInt(fields[fieldLastSeen], 10, 64)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("profile %s last seen: %w: %w", id, sentinel.ErrFormat, err)
	}
	props, err := identity.DecodeProperties([]byte(fields[fieldProperties]))
	if err != nil {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", id, err)
	}
	return identity.NewProfile(id, props, time.UnixMilli(lastSeen), s.now(), s.ttl), nil
}

// DeleteExpiredProfiles is a no-op: Redis expires profile keys itself.
func (s *ProfileStore) DeleteExpiredProfiles(context.Context, time.Time) (int64, error) {
	return 0, nil
}
