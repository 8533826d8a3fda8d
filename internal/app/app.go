// Package app wires configuration into a running cache: backend selection,
// the one-time file migration, remote resolution, events and the admin API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"playercache/internal/admin"
	"playercache/internal/cache"
	"playercache/internal/events"
	jwttoken "playercache/internal/jwt_token"
	"playercache/internal/platform/config"
	"playercache/internal/platform/httpserver"
	"playercache/internal/platform/metrics"
	redisclient "playercache/internal/platform/redis"
	"playercache/internal/platform/workers"
	"playercache/internal/resolver"
	"playercache/internal/service"
	"playercache/internal/store/filestore"
	"playercache/internal/store/redisstore"
	"playercache/internal/store/sqlstore"
	"playercache/pkg/platform/circuit"
	authmw "playercache/pkg/platform/middleware/auth"
)

const jwtIssuer = "playercache"

// App owns every long-lived resource. Close releases them in reverse order.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Cache    *cache.Cache
	Service  *service.Service

	files     *filestore.Store
	sql       *sqlstore.Store
	redis     *redisclient.Client
	pool      *workers.Pool
	publisher *events.KafkaPublisher
	stopEvent context.CancelFunc
	eventDone chan struct{}
}

type options struct {
	logger    *slog.Logger
	directory service.Directory
	executor  service.Executor
	offline   bool
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDirectory imports the host's known players at startup.
func WithDirectory(d service.Directory) Option {
	return func(o *options) {
		o.directory = d
	}
}

func WithExecutor(e service.Executor) Option {
	return func(o *options) {
		o.executor = e
	}
}

// Offline skips the remote resolver and event publishing. The CLI uses it for
// read-only inspection of a store.
func Offline() Option {
	return func(o *options) {
		o.offline = true
	}
}

// New builds the application. A corrupt player file or an unreachable
// database is fatal; everything else degrades with a log line.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:   cfg,
		Logger:   o.logger,
		Registry: prometheus.NewRegistry(),
	}
	if err := a.init(ctx, o); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, o options) error {
	cfg := a.Config
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cacheOpts := []cache.Option{
		cache.WithLogger(a.Logger),
		cache.WithMetrics(metrics.New(a.Registry)),
	}
	storeOpts, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	cacheOpts = append(cacheOpts, storeOpts...)

	a.Cache = cache.New(cache.Config{
		MemoryTTL:       cfg.Cache.MemoryTTL,
		ProfileTTL:      cfg.Profiles.TTL,
		ProfileLocalTTL: cfg.Profiles.LocalTTL,
	}, cacheOpts...)

	if err := a.load(ctx); err != nil {
		return err
	}

	a.pool = workers.New(cfg.Workers, a.Logger)
	svcOpts := []service.Option{
		service.WithLogger(a.Logger),
		service.WithPool(a.pool),
		service.WithDirectory(o.directory),
	}
	if o.executor != nil {
		svcOpts = append(svcOpts, service.WithExecutor(o.executor))
	}
	if !o.offline {
		if r := a.newResolver(); r != nil {
			svcOpts = append(svcOpts, service.WithResolver(r))
		}
		sink, err := a.startEvents()
		if err != nil {
			return err
		}
		if sink != nil {
			svcOpts = append(svcOpts, service.WithEvents(sink))
		}
	}
	a.Service, err = service.New(a.Cache, svcOpts...)
	if err != nil {
		return err
	}

	if o.directory != nil {
		n, err := a.Service.ImportKnownPlayers(ctx)
		if err != nil {
			a.Logger.WarnContext(ctx, "known player import failed", "error", err)
		} else if n > 0 {
			a.Logger.InfoContext(ctx, "imported known players", "count", n)
		}
	}
	if a.sql != nil {
		a.sql.StartMaintenance(cfg.Storage.MaintenanceInterval, a.Cache.EvictProfilesBefore)
	}
	return nil
}

// openStores opens the configured identity and profile backends and returns
// the cache options that attach them.
func (a *App) openStores(ctx context.Context) ([]cache.Option, error) {
	cfg := a.Config
	var opts []cache.Option

	switch cfg.Storage.Backend {
	case config.BackendFile:
		files, err := filestore.Open(cfg.Storage.FilePath, filestore.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.files = files
		opts = append(opts, cache.WithStore(files))
	case config.BackendSQL:
		store, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver: cfg.Storage.Driver,
			DSN:    cfg.Storage.DSN,
			Tables: sqlstore.Tables{
				Players:     cfg.Storage.Tables.Players,
				Profiles:    cfg.Storage.Tables.Profiles,
				NameHistory: cfg.Storage.Tables.NameHistory,
				NameChanges: cfg.Storage.Tables.NameChanges,
			},
			ProfileTTL: cfg.Profiles.TTL,
		}, sqlstore.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.sql = store
		opts = append(opts, cache.WithStore(store))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	switch cfg.Profiles.Backend {
	case config.ProfilesSQL:
		if a.sql != nil {
			opts = append(opts, cache.WithProfileStore(a.sql))
		}
	case config.ProfilesRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client != nil {
			a.redis = client
			opts = append(opts, cache.WithProfileStore(redisstore.New(client.Client, cfg.Profiles.TTL)))
		}
	}
	return opts, nil
}

// load fills memory from the player file, or migrates a leftover player file
// into the database when the relational backend is active.
func (a *App) load(ctx context.Context) error {
	if a.files != nil {
		records, err := a.files.LoadAll(ctx)
		if err != nil {
			return err
		}
		a.Cache.Reconcile(ctx, records, false)
		a.Logger.InfoContext(ctx, "player file loaded", "path", a.files.Path(), "records", len(records))
		return nil
	}
	if a.sql == nil || a.Config.Storage.FilePath == "" {
		return nil
	}
	exists, err := filestore.Exists(a.Config.Storage.FilePath)
	if err != nil || !exists {
		return err
	}
	n, err := MigrateFile(ctx, a.Config.Storage.FilePath, a.sql, a.Cache, a.Logger)
	if err != nil {
		a.Logger.ErrorContext(ctx, "player file migration failed, file kept", "path", a.Config.Storage.FilePath, "error", err)
		return nil
	}
	a.Logger.InfoContext(ctx, "player file migrated to database", "path", a.Config.Storage.FilePath, "records", n)
	return nil
}

func (a *App) newResolver() resolver.Resolver {
	cfg := a.Config.Resolver
	if !cfg.Enabled {
		return nil
	}
	client := resolver.NewMojangClient(resolver.Config{
		APIBaseURL:     cfg.APIBaseURL,
		SessionBaseURL: cfg.SessionBaseURL,
		Timeout:        cfg.Timeout,
	}, resolver.WithLogger(a.Logger))
	breaker := circuit.New("mojang",
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.SuccessThreshold),
		circuit.WithCooldown(cfg.Cooldown),
	)
	return resolver.NewGuarded(client, breaker, a.Logger)
}

// startEvents runs the publishing worker when brokers are configured.
func (a *App) startEvents() (events.Sink, error) {
	cfg := a.Config.Events
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, err
	}
	a.publisher = publisher
	worker := events.NewWorker(publisher, cfg.BufferSize, a.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	a.stopEvent = cancel
	a.eventDone = make(chan struct{})
	go func() {
		defer close(a.eventDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("event worker stopped", "error", err)
		}
	}()
	return worker, nil
}

// Health pings whichever backends are remote.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.sql != nil {
		errs = append(errs, a.sql.Ping(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Health(ctx))
	}
	return errors.Join(errs...)
}

// Handler serves the admin API, /metrics and /healthz. Admin routes require
// a bearer token when a signing key is configured.
func (a *App) Handler() http.Handler {
	var validator authmw.JWTValidator
	if key := a.Config.Server.JWTSigningKey; key != "" {
		validator = jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(key, jwtIssuer))
	}
	h := admin.New(a.Service, a.Logger, validator, a.Cache.HasProfileStore())
	return admin.NewRouter(h, a.Registry, a.Health)
}

// Serve runs the admin HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := httpserver.New(a.Config.Server.Addr, a.Handler())
	return httpserver.Run(ctx, srv, a.Logger)
}

// IssueAdminToken mints a token accepted by the admin API.
func IssueAdminToken(cfg config.Config, subject string, ttl time.Duration) (string, error) {
	if cfg.Server.JWTSigningKey == "" {
		return "", errors.New("server.jwt_signing_key is not configured")
	}
	return jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwtIssuer).GenerateAdminToken(subject, ttl)
}

// Close drains background work and releases the stores. It is safe to call
// on a partially built App.
func (a *App) Close() {
	if a.Service != nil {
		a.Service.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.stopEvent != nil {
		a.stopEvent()
		<-a.eventDone
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.sql != nil {
		if err := a.sql.Close(); err != nil {
			a.Logger.Error("failed to close database", "error", err)
		}
	}
	if a.files != nil {
		a.files.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error("failed to close redis", "error", err)
		}
	}
}
