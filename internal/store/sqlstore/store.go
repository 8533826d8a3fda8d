// Package sqlstore is the relational backend for identity records, name
// histories and profile properties. It runs on SQLite (mattn/go-sqlite3) or
// PostgreSQL through either lib/pq or pgx.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"playercache/pkg/platform/sentinel"
)

// Config selects the database and the tables to use.
type Config struct {
	Driver string
	DSN    string
	Tables Tables
	// ProfileTTL is the base lifetime of stored profiles. It drives profile
	// expiration on read and the maintenance sweep cutoff.
	ProfileTTL time.Duration
}

// Store is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect dialect
	tables  Tables
	q       queries
	ttl     time.Duration

	logger *slog.Logger
	now    func() time.Time

	maintMu   sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for load times and maintenance cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to the database and applies the schema. It is safe to call
// against an existing database.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	tables := cfg.Tables.withDefaults()
	if err := tables.validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %w", sentinel.ErrStore, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w: %w", sentinel.ErrStore, err)
	}

	if d.name == DriverSQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragmas: %w: %w", sentinel.ErrStore, err)
		}
	}

	if err := bootstrap(ctx, db, d, tables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w: %w", sentinel.ErrStore, err)
	}

	s := &Store{
		db:      db,
		dialect: d,
		tables:  tables,
		q:       buildQueries(d, tables),
		ttl:     cfg.ProfileTTL,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// DB exposes the connection pool for transactions spanning several calls.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w: %w", sentinel.ErrStore, err)
	}
	return nil
}

// Close stops maintenance and closes the connection pool.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.StopMaintenance()
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close database: %w: %w", sentinel.ErrStore, cerr)
		}
	})
	return err
}

type queries struct {
	upsertPlayer   string
	playerByID     string
	playersByName  string
	searchPlayers  string
	upsertProfile  string
	profileByID    string
	deleteProfiles string
	upsertHistory  string
	insertChange   string
	insertChanges  string
	historyByID    string
	changesByID    string
	idsEverNamed   string
	countPlayers   string
}

func buildQueries(d dialect, t Tables) queries {
	q := queries{
		upsertPlayer: fmt.Sprintf(`INSERT INTO %s (uuid, name, last_seen) VALUES (?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE SET name = excluded.name, last_seen = excluded.last_seen`, t.Players),
		playerByID:    fmt.Sprintf(`SELECT name, last_seen FROM %s WHERE uuid = ?`, t.Players),
		playersByName: fmt.Sprintf(`SELECT uuid, name, last_seen FROM %s WHERE name = ?`, t.Players),
		searchPlayers: fmt.Sprintf(`SELECT uuid, name, last_seen FROM %s
			WHERE LOWER(name) LIKE ? ESCAPE '\' ORDER BY last_seen DESC`, t.Players),

		upsertProfile: fmt.Sprintf(`INSERT INTO %s (uuid, properties, last_seen) VALUES (?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE SET properties = excluded.properties, last_seen = excluded.last_seen`, t.Profiles),
		profileByID:    fmt.Sprintf(`SELECT properties, last_seen FROM %s WHERE uuid = ?`, t.Profiles),
		deleteProfiles: fmt.Sprintf(`DELETE FROM %s WHERE last_seen < ?`, t.Profiles),

		upsertHistory: fmt.Sprintf(`INSERT INTO %s (uuid, first_name, refreshed) VALUES (?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE SET refreshed = excluded.refreshed`, t.NameHistory),
		insertChange: fmt.Sprintf(`INSERT INTO %s (uuid, changed_at, new_name) VALUES (?, ?, ?)
			ON CONFLICT (uuid, changed_at) DO NOTHING`, t.NameChanges),
		historyByID: fmt.Sprintf(`SELECT first_name, refreshed FROM %s WHERE uuid = ?`, t.NameHistory),
		changesByID: fmt.Sprintf(`SELECT changed_at, new_name FROM %s WHERE uuid = ? ORDER BY changed_at`, t.NameChanges),
		idsEverNamed: fmt.Sprintf(`SELECT uuid, MAX(d) AS latest FROM (
				SELECT uuid, 0 AS d FROM %s WHERE first_name = ?
				UNION ALL
				SELECT uuid, last_seen AS d FROM %s WHERE name = ?
				UNION ALL
				SELECT uuid, changed_at AS d FROM %s WHERE new_name = ?
			) AS named GROUP BY uuid ORDER BY latest DESC`, t.NameHistory, t.Players, t.NameChanges),

		countPlayers: fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.Players),
	}
	if d.postgres() {
		q.insertChanges = fmt.Sprintf(`INSERT INTO %s (uuid, changed_at, new_name)
			SELECT ?::text, unnest(?::bigint[]), unnest(?::text[])
			ON CONFLICT (uuid, changed_at) DO NOTHING`, t.NameChanges)
	}

	q.upsertPlayer = d.rebind(q.upsertPlayer)
	q.playerByID = d.rebind(q.playerByID)
	q.playersByName = d.rebind(q.playersByName)
	q.searchPlayers = d.rebind(q.searchPlayers)
	q.upsertProfile = d.rebind(q.upsertProfile)
	q.profileByID = d.rebind(q.profileByID)
	q.deleteProfiles = d.rebind(q.deleteProfiles)
	q.upsertHistory = d.rebind(q.upsertHistory)
	q.insertChange = d.rebind(q.insertChange)
	q.insertChanges = d.rebind(q.insertChanges)
	q.historyByID = d.rebind(q.historyByID)
	q.changesByID = d.rebind(q.changesByID)
	q.idsEverNamed = d.rebind(q.idsEverNamed)
	return q
}
