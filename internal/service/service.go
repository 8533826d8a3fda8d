// Package service is the resolution façade used by the embedding host. It
// composes the cache, its durable store and the remote resolver, and writes
// what it learns back down.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"playercache/internal/cache"
	"playercache/internal/events"
	"playercache/internal/platform/workers"
	"playercache/internal/resolver"
	"playercache/pkg/platform/sentinel"
	"playercache/pkg/requestcontext"
)

// Executor runs callbacks on the host's primary execution context.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// inline runs callbacks on whichever goroutine finished the work.
var inline = ExecutorFunc(func(fn func()) { fn() })

// KnownPlayer is a player the host already knows about locally.
type KnownPlayer struct {
	ID         uuid.UUID
	Name       string
	LastPlayed time.Time
}

// Directory lists the players known to the host, for the first-run import.
type Directory interface {
	KnownPlayers(ctx context.Context) ([]KnownPlayer, error)
}

// Service is safe for concurrent use.
type Service struct {
	cache     *cache.Cache
	resolver  resolver.Resolver
	pool      *workers.Pool
	ownPool   bool
	exec      Executor
	events    events.Sink
	directory Directory
	logger    *slog.Logger
	group     singleflight.Group
}

type Option func(*Service)

func WithResolver(r resolver.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExecutor sets where async callbacks run. By default they run on the
// worker goroutine.
func WithExecutor(e Executor) Option {
	return func(s *Service) {
		if e != nil {
			s.exec = e
		}
	}
}

// WithPool shares a worker pool. The caller keeps ownership and closes it.
func WithPool(p *workers.Pool) Option {
	return func(s *Service) {
		if p != nil {
			s.pool = p
		}
	}
}

func WithEvents(sink events.Sink) Option {
	return func(s *Service) {
		s.events = sink
	}
}

func WithDirectory(d Directory) Option {
	return func(s *Service) {
		s.directory = d
	}
}

func New(c *cache.Cache, opts ...Option) (*Service, error) {
	if c == nil {
		return nil, errors.New("cache is required")
	}
	s := &Service{
		cache:  c,
		exec:   inline,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = workers.New(4, s.logger)
		s.ownPool = true
	}
	return s, nil
}

// Stats returns the cache counters.
func (s *Service) Stats() cache.Stats {
	return s.cache.Stats()
}

// HasResolver reports whether remote resolution is available.
func (s *Service) HasResolver() bool {
	return s.resolver != nil
}

// Close waits for background work. A pool created by New is shut down.
func (s *Service) Close() {
	if s.ownPool {
		s.pool.Close()
		return
	}
	s.pool.Wait()
}

// now prefers a time pinned on the context over the cache clock.
func (s *Service) now(ctx context.Context) time.Time {
	if t, ok := requestcontext.TimeFrom(ctx); ok {
		return t
	}
	return s.cache.Now()
}

// remoteFailed logs a resolver error. Open-breaker refusals are expected and
// only logged at debug level.
func (s *Service) remoteFailed(ctx context.Context, op string, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case errors.Is(err, sentinel.ErrUnavailable):
		s.logger.DebugContext(ctx, "remote resolver unavailable", "op", op)
	default:
		s.cache.CountRemoteFailure()
		s.logger.ErrorContext(ctx, "remote lookup failed", "op", op, "error", err)
	}
}
