// Package config loads the service configuration.
//
// Precedence is environment (PRSDB_*) over the YAML file over defaults.
package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

// Config is the service configuration.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	MetricsAddr  string `yaml:"metrics_addr"`
	LogLevel     string `yaml:"log_level"`
	SecureCookie bool   `yaml:"secure_cookie"`

	Store      StoreConfig      `yaml:"store"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Encryption EncryptionConfig `yaml:"encryption"`

	// PIIFields are masked when sessions are inspected.
	PIIFields []string `yaml:"pii_fields"`

	Addresses        []AddressSeed           `yaml:"addresses"`
	LocalAuthorities []domain.LocalAuthority `yaml:"local_authorities"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	File    FileConfig  `yaml:"file"`
}

type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`

	// Lock enables the distributed session lock for multi-replica deployments.
	Lock bool `yaml:"lock"`
	// LockTTL bounds how long a crashed replica can hold a session lock.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type FileConfig struct {
	Dir string `yaml:"dir"`
}

type SQLiteConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// EncryptionConfig holds hex encoded AES-256 keys. Encryption is off when Key is empty.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// AddressSeed is an address served by the built-in address lookup.
type AddressSeed struct {
	UPRN             int64  `yaml:"uprn"`
	Line             string `yaml:"single_line_address"`
	BuildingName     string `yaml:"building_name"`
	BuildingNumber   string `yaml:"building_number"`
	StreetName       string `yaml:"street_name"`
	TownName         string `yaml:"town_name"`
	Postcode         string `yaml:"postcode"`
	LocalAuthorityID int    `yaml:"local_authority_id"`
}

// Address converts the seed to a domain address.
func (a AddressSeed) Address() domain.Address {
	out := domain.Address{
		SingleLineAddress: a.Line,
		BuildingName:      a.BuildingName,
		BuildingNumber:    a.BuildingNumber,
		StreetName:        a.StreetName,
		TownName:          a.TownName,
		Postcode:          a.Postcode,
	}
	if a.UPRN != 0 {
		uprn := a.UPRN
		out.UPRN = &uprn
	}
	if a.LocalAuthorityID != 0 {
		id := a.LocalAuthorityID
		out.LocalAuthorityID = &id
	}
	return out
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "prsdb", TTL: 24 * time.Hour, LockTTL: 30 * time.Second},
			File:    FileConfig{Dir: filepath.Join(".prsdb", "sessions")},
		},
		SQLite:    SQLiteConfig{Path: filepath.Join(".prsdb", "registrations.db"), BusyTimeout: 5 * time.Second},
		RateLimit: RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

// Loader reads the configuration with a given environment.
type Loader struct {
	path   string
	lookup func(key string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(lookup func(key string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookup = lookup
	}
}

// NewLoader creates a loader for the YAML file at path. An empty path skips the file.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load is NewLoader(path).Load().
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

// Load applies defaults, the file and the environment, then validates the result.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.path != "" {
		if err := l.loadFile(&cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the file strictly: unknown keys are errors.
func (l *Loader) loadFile(cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(l.path))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) error {
	strs := map[string]*string{
		"PRSDB_LISTEN_ADDR":    &cfg.ListenAddr,
		"PRSDB_METRICS_ADDR":   &cfg.MetricsAddr,
		"PRSDB_LOG_LEVEL":      &cfg.LogLevel,
		"PRSDB_STORE":          &cfg.Store.Backend,
		"PRSDB_REDIS_ADDR":     &cfg.Store.Redis.Addr,
		"PRSDB_REDIS_PREFIX":   &cfg.Store.Redis.Prefix,
		"PRSDB_FILE_DIR":       &cfg.Store.File.Dir,
		"PRSDB_SQLITE_PATH":    &cfg.SQLite.Path,
		"PRSDB_ENCRYPTION_KEY": &cfg.Encryption.Key,
	}
	for key, dst := range strs {
		if v, ok := l.lookup(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PRSDB_REDIS_TTL":           &cfg.Store.Redis.TTL,
		"PRSDB_REDIS_LOCK_TTL":      &cfg.Store.Redis.LockTTL,
		"PRSDB_SQLITE_BUSY_TIMEOUT": &cfg.SQLite.BusyTimeout,
		"PRSDB_RATE_WINDOW":         &cfg.RateLimit.Window,
	}
	for key, dst := range durations {
		v, ok := l.lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := l.lookup("PRSDB_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRSDB_RATE_LIMIT: %w", err)
		}
		cfg.RateLimit.Requests = n
	}
	bools := map[string]*bool{
		"PRSDB_SECURE_COOKIE": &cfg.SecureCookie,
		"PRSDB_REDIS_LOCK":    &cfg.Store.Redis.Lock,
	}
	for key, dst := range bools {
		v, ok := l.lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	if v, ok := l.lookup("PRSDB_PII_FIELDS"); ok && v != "" {
		cfg.PIIFields = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for values the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	case BackendFile:
		if c.Store.File.Dir == "" {
			errs = append(errs, errors.New("store.file.dir is required for the file backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.SQLite.Path == "" {
		errs = append(errs, errors.New("sqlite.path is required"))
	}
	if c.Store.Redis.LockTTL < 0 {
		errs = append(errs, errors.New("store.redis.lock_ttl must not be negative"))
	}
	if c.RateLimit.Requests < 0 {
		errs = append(errs, errors.New("rate_limit.requests must not be negative"))
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// EncryptionKeys decodes the active and fallback keys. active is nil when encryption is off.
func (c Config) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.Encryption.Key == "" {
		if len(c.Encryption.FallbackKeys) > 0 {
			return nil, nil, errors.New("encryption.fallback_keys need an active encryption.key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey("encryption.key", c.Encryption.Key); err != nil {
		return nil, nil, err
	}
	for i, k := range c.Encryption.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("encryption.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s is not hex: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// SeedAddresses converts the configured addresses.
func (c Config) SeedAddresses() []domain.Address {
	out := make([]domain.Address, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		out = append(out, a.Address())
	}
	return out
}
