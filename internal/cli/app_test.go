package cli

import (
	"context"
	"encoding/hex"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/config"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/journeys/property"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/logging"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/persistence/middleware"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "registrations.db")
	cfg.Store.File.Dir = filepath.Join(t.TempDir(), "sessions")
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Store.Backend = backend
			cfg.Store.Redis.Addr = mr.Addr()
			cfg.Store.Redis.Lock = true
			app := newApp(t, cfg)

			ctx := context.Background()
			require.NoError(t, app.Manager.Answers("s1").Set(ctx, "data", "answer", "yes"))
			snap, err := app.Inspect(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "yes", snap.Bags["data"]["answer"])
		})
	}
}

func TestNewApp_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "etcd"
	_, err := NewApp(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, `unknown store backend "etcd"`)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = "127.0.0.1:1"
	_, err := NewApp(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "redis 127.0.0.1:1")
}

func TestNewApp_LockTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Redis.Lock = true
	cfg.Store.Redis.LockTTL = 7 * time.Second
	app := newApp(t, cfg)

	err := app.Manager.WithLock(context.Background(), "s1", func(context.Context) error {
		assert.Equal(t, 7*time.Second, mr.TTL(cfg.Store.Redis.Prefix+"lock:s1"))
		return nil
	})
	require.NoError(t, err)
}

func TestApp_EncryptedInspectMasksPII(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Encryption.Key = hex.EncodeToString([]byte(strings.Repeat("k", 32)))
	cfg.PIIFields = []string{"^postcode$"}
	app := newApp(t, cfg)

	ctx := context.Background()
	answers := app.Manager.Answers("s1")
	require.NoError(t, answers.Set(ctx, "data", "postcode", "EG1 2AB"))
	require.NoError(t, answers.Set(ctx, "data", "propertyType", "FLAT"))

	assert.NotContains(t, mr.Dump(), "EG1 2AB")
	assert.NotContains(t, mr.Dump(), "FLAT")

	snap, err := app.Inspect(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, snap.Bags["data"]["postcode"])
	assert.Equal(t, "FLAT", snap.Bags["data"]["propertyType"])

	value, ok, err := answers.Get(ctx, "data", "postcode")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EG1 2AB", value)
}

func TestApp_InspectWaitsForSessionLock(t *testing.T) {
	for _, pii := range [][]string{nil, {"^postcode$"}} {
		cfg := testConfig(t)
		cfg.PIIFields = pii
		app := newApp(t, cfg)
		ctx := context.Background()

		locked := make(chan struct{})
		release := make(chan struct{})
		held := make(chan error, 1)
		go func() {
			held <- app.Manager.WithLock(ctx, "s1", func(ctx context.Context) error {
				close(locked)
				<-release
				return app.Manager.Answers("s1").Set(ctx, "data", "postcode", "EG1 2AB")
			})
		}()
		<-locked

		inspected := make(chan error, 1)
		go func() {
			_, err := app.Inspect(ctx, "s1")
			inspected <- err
		}()

		select {
		case <-inspected:
			t.Fatal("inspect ran while the session was locked")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		require.NoError(t, <-held)
		require.NoError(t, <-inspected)
	}
}

func TestServe(t *testing.T) {
	app := newApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	addrs := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, app, func(addr string) { addrs <- addr })
	}()

	var base string
	select {
	case addr := <-addrs:
		base = "http://" + addr
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + property.RoutePrefix)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, property.RoutePrefix+"/"+property.TaskListSegment, resp.Header.Get("Location"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestDescribeProperty(t *testing.T) {
	steps, err := DescribeProperty()
	require.NoError(t, err)

	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Segment)
	}
	assert.Contains(t, names, property.TaskListSegment)
	assert.Contains(t, names, property.CheckAnswersSegment)
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc := NewSignalContext(parent)
	defer sc.Cancel()

	cancel()
	<-sc.Done()
	assert.Nil(t, sc.Signal())
}
