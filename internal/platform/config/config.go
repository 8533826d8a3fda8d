// Package config loads runtime configuration from defaults, an optional YAML
// file and PLAYERCACHE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends selectable for a process lifetime.
const (
	BackendFile = "file"
	BackendSQL  = "sql"
)

// Profile property backends.
const (
	ProfilesSQL   = "sql"
	ProfilesRedis = "redis"
	ProfilesOff   = "off"
)

// Config is the full runtime configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Redis    RedisConfig    `yaml:"redis"`
	Resolver ResolverConfig `yaml:"resolver"`
	Events   EventsConfig   `yaml:"events"`
	Workers  int            `yaml:"workers"`
}

// Server captures admin HTTP server configuration.
type Server struct {
	Addr          string `yaml:"addr"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig controls the in-memory tier. A negative MemoryTTL keeps entries
// forever, zero disables the maps entirely.
type CacheConfig struct {
	MemoryTTL time.Duration `yaml:"memory_ttl"`
}

type StorageConfig struct {
	Backend             string        `yaml:"backend"`
	FilePath            string        `yaml:"file_path"`
	Driver              string        `yaml:"driver"`
	DSN                 string        `yaml:"dsn"`
	Tables              Tables        `yaml:"tables"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
}

// Tables names the relational tables; empty fields fall back to defaults.
type Tables struct {
	Players     string `yaml:"players"`
	Profiles    string `yaml:"profiles"`
	NameHistory string `yaml:"name_histories"`
	NameChanges string `yaml:"name_changes"`
}

// ProfilesConfig controls the signed profile-property cache.
type ProfilesConfig struct {
	Backend  string        `yaml:"backend"`
	TTL      time.Duration `yaml:"ttl"`
	LocalTTL time.Duration `yaml:"local_ttl"`
}

// RedisConfig is used when Profiles.Backend is redis.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ResolverConfig struct {
	Enabled          bool          `yaml:"enabled"`
	APIBaseURL       string        `yaml:"api_base_url"`
	SessionBaseURL   string        `yaml:"session_base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// EventsConfig enables name-change publishing when Brokers is non-empty.
type EventsConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"buffer_size"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Cache:  CacheConfig{MemoryTTL: -1},
		Storage: StorageConfig{
			Backend:             BackendFile,
			FilePath:            "players.dat",
			Driver:              "sqlite3",
			MaintenanceInterval: 24 * time.Hour,
		},
		Profiles: ProfilesConfig{
			Backend:  ProfilesSQL,
			TTL:      24 * time.Hour,
			LocalTTL: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Resolver: ResolverConfig{
			Enabled:          true,
			APIBaseURL:       "https://api.mojang.com",
			SessionBaseURL:   "https://sessionserver.mojang.com",
			Timeout:          5 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Cooldown:         30 * time.Second,
		},
		Events:  EventsConfig{Topic: "player-name-changes", BufferSize: 256},
		Workers: 4,
	}
}

// Load reads a YAML file over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults and environment variables so main stays lean.
func FromEnv() (Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PLAYERCACHE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PLAYERCACHE_JWT_SIGNING_KEY"); v != "" {
		cfg.Server.JWTSigningKey = v
	}
	if v := os.Getenv("PLAYERCACHE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PLAYERCACHE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("PLAYERCACHE_STORAGE_FILE"); v != "" {
		cfg.Storage.FilePath = v
	}
	if v := os.Getenv("PLAYERCACHE_DB_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("PLAYERCACHE_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PLAYERCACHE_MEMORY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse PLAYERCACHE_MEMORY_TTL: %w", err)
		}
		cfg.Cache.MemoryTTL = d
	}
	if v := os.Getenv("PLAYERCACHE_PROFILES_BACKEND"); v != "" {
		cfg.Profiles.Backend = v
	}
	if v := os.Getenv("PLAYERCACHE_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PLAYERCACHE_RESOLVER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse PLAYERCACHE_RESOLVER_ENABLED: %w", err)
		}
		cfg.Resolver.Enabled = enabled
	}
	if v := os.Getenv("PLAYERCACHE_KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = strings.Split(v, ",")
	}
	return nil
}

// normalize applies cross-field rules. The file backend has no query path, so
// every record must stay in memory for the whole process lifetime.
func (c *Config) normalize() {
	if c.Storage.Backend == BackendFile {
		c.Cache.MemoryTTL = -1
		if c.Profiles.Backend == ProfilesSQL {
			c.Profiles.Backend = ProfilesOff
		}
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// Validate reports configuration that cannot be started.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.FilePath == "" {
			errs = append(errs, errors.New("storage.file_path is required for the file backend"))
		}
	case BackendSQL:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the sql backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	switch c.Profiles.Backend {
	case ProfilesSQL, ProfilesOff:
	case ProfilesRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis profile backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown profiles backend %q", c.Profiles.Backend))
	}
	if c.Profiles.TTL <= 0 {
		errs = append(errs, errors.New("profiles.ttl must be positive"))
	}
	return errors.Join(errs...)
}
