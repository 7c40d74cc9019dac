package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/config"
)

const validKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func env(vars map[string]string) config.LoaderOption {
	return config.WithLookupEnv(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prsdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.NewLoader("", env(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":8181"
log_level: debug
store:
  backend: redis
  redis:
    addr: "redis:6379"
    ttl: 30m
    lock: true
    lock_ttl: 5s
rate_limit:
  requests: 10
  window: 10s
pii_fields: [postcode, addressLineOne]
addresses:
  - uprn: 1001
    single_line_address: "1 Example Road, EG1 2AB"
    building_number: "1"
    postcode: "EG1 2AB"
local_authorities:
  - id: 1
    name: Exampleton Council
`)

	cfg, err := config.NewLoader(path, env(nil)).Load()
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.ListenAddr)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "prsdb", cfg.Store.Redis.Prefix, "unset keys keep their defaults")
	assert.Equal(t, 30*time.Minute, cfg.Store.Redis.TTL)
	assert.True(t, cfg.Store.Redis.Lock)
	assert.Equal(t, 5*time.Second, cfg.Store.Redis.LockTTL)
	assert.Equal(t, config.RateLimitConfig{Requests: 10, Window: 10 * time.Second}, cfg.RateLimit)
	assert.Equal(t, []string{"postcode", "addressLineOne"}, cfg.PIIFields)

	addresses := cfg.SeedAddresses()
	require.Len(t, addresses, 1)
	require.NotNil(t, addresses[0].UPRN)
	assert.EqualValues(t, 1001, *addresses[0].UPRN)
	assert.Nil(t, addresses[0].LocalAuthorityID)
	assert.Equal(t, "Exampleton Council", cfg.LocalAuthorities[0].Name)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.NewLoader(writeFile(t, ""), env(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := config.NewLoader(writeFile(t, "listen_address: \":1\"\n"), env(nil)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "store:\n  backend: redis\n")

	cfg, err := config.NewLoader(path, env(map[string]string{
		"PRSDB_STORE":          "file",
		"PRSDB_FILE_DIR":       "/var/lib/prsdb",
		"PRSDB_RATE_LIMIT":     "5",
		"PRSDB_RATE_WINDOW":    "2s",
		"PRSDB_SECURE_COOKIE":  "true",
		"PRSDB_ENCRYPTION_KEY": validKey,
		"PRSDB_PII_FIELDS":     "postcode, ,townOrCity",
		"PRSDB_LOG_LEVEL":      "",
		"PRSDB_REDIS_LOCK_TTL": "45s",
	})).Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/prsdb", cfg.Store.File.Dir)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.SecureCookie)
	assert.Equal(t, []string{"postcode", "townOrCity"}, cfg.PIIFields)
	assert.Equal(t, "info", cfg.LogLevel, "empty variables are ignored")
	assert.Equal(t, 45*time.Second, cfg.Store.Redis.LockTTL)

	active, fallback, err := cfg.EncryptionKeys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Empty(t, fallback)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	for key, value := range map[string]string{
		"PRSDB_RATE_LIMIT":     "lots",
		"PRSDB_REDIS_TTL":      "forever",
		"PRSDB_REDIS_LOCK_TTL": "soon",
		"PRSDB_SECURE_COOKIE":  "maybe",
	} {
		_, err := config.NewLoader("", env(map[string]string{key: value})).Load()
		require.Error(t, err, key)
		assert.Contains(t, err.Error(), key)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "etcd" }, `unknown store backend "etcd"`},
		{"redis without addr", func(c *config.Config) { c.Store.Backend = config.BackendRedis; c.Store.Redis.Addr = "" }, "store.redis.addr"},
		{"bad level", func(c *config.Config) { c.LogLevel = "loud" }, "log_level"},
		{"short key", func(c *config.Config) { c.Encryption.Key = "abcd" }, "must be 32 bytes"},
		{"key not hex", func(c *config.Config) { c.Encryption.Key = strings.Repeat("z", 64) }, "not hex"},
		{"fallback without key", func(c *config.Config) { c.Encryption.FallbackKeys = []string{validKey} }, "need an active"},
		{"rate window", func(c *config.Config) { c.RateLimit.Window = 0 }, "rate_limit.window"},
		{"negative lock ttl", func(c *config.Config) { c.Store.Redis.LockTTL = -time.Second }, "store.redis.lock_ttl"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
