package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/config"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/journeys/property"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/file"
	httpadapter "github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/http"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/memory"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/redis"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/sqlite"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/observability"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/persistence/middleware"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/session"
)

// App holds the wired service: session storage, the registrar and the journeys.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Manager   *session.Manager
	Registrar *sqlite.Registrar
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry

	addresses *memory.AddressBook
	closers   []func() error
}

// NewApp wires every adapter named by cfg. Close releases them.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	store, locker, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	managerOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
		if ttl := cfg.Store.Redis.LockTTL; ttl > 0 {
			managerOpts = append(managerOpts, session.WithLockTTL(ttl))
		}
	}
	app.Manager = session.NewManager(store, managerOpts...)

	db, err := sqlite.Open(cfg.SQLite.Path, sqlite.Config{
		BusyTimeout:  cfg.SQLite.BusyTimeout,
		MaxOpenConns: sqlite.DefaultConfig().MaxOpenConns,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	if app.Registrar, err = sqlite.NewRegistrar(db); err != nil {
		app.Close()
		return nil, err
	}

	app.addresses = memory.NewAddressBook(cfg.SeedAddresses(), cfg.LocalAuthorities)
	app.Registry = prometheus.NewRegistry()
	app.Metrics = observability.NewMetrics(app.Registry)
	return app, nil
}

// openStore builds the configured backend, wrapped in encryption when a key is set.
func (a *App) openStore(ctx context.Context) (ports.SessionStore, ports.DistributedLocker, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)

	switch a.Config.Store.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(a.Config.Store.File.Dir)
	case config.BackendRedis:
		rc := a.Config.Store.Redis
		client := goredis.NewClient(&goredis.Options{Addr: rc.Addr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
		}
		store = redis.NewFromClient(client, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		if rc.Lock {
			locker = redis.NewLocker(client, rc.Prefix)
		}
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}

	active, fallback, err := a.Config.EncryptionKeys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return store, locker, nil
}

// Deps returns the property registration collaborators.
func (a *App) Deps() property.Deps {
	return property.Deps{
		Registrar:        a.Registrar,
		Addresses:        a.addresses,
		LocalAuthorities: a.addresses,
	}
}

// Hooks logs every step event and feeds the metrics.
func (a *App) Hooks() journey.BuilderOption {
	return journey.WithHooks(observability.LoggingHooks(a.Logger).Merge(a.Metrics.Hooks()))
}

// Server builds the HTTP server for every journey.
func (a *App) Server() *httpadapter.Server {
	defs := []httpadapter.Definition{
		property.Definition(a.Deps(), a.Hooks(), journey.WithLogger(a.Logger)),
	}
	return httpadapter.NewServer(a.Manager, defs,
		httpadapter.WithLogger(a.Logger),
		httpadapter.WithMetrics(a.Metrics),
		httpadapter.WithRateLimit(a.Config.RateLimit.Requests, a.Config.RateLimit.Window),
		httpadapter.WithSecureCookie(a.Config.SecureCookie),
	)
}

// Inspect returns a session with the configured PII fields masked.
// The snapshot is taken under the session lock.
func (a *App) Inspect(ctx context.Context, sessionID string) (*ports.SessionSnapshot, error) {
	if len(a.Config.PIIFields) == 0 {
		return a.Manager.Inspect(ctx, sessionID)
	}
	store := middleware.Chain(a.Manager.Store(), middleware.NewPIIMiddleware(a.Config.PIIFields))
	var snap *ports.SessionSnapshot
	err := a.Manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = store.Snapshot(ctx, sessionID)
		return err
	})
	return snap, err
}

// Close releases the store and the database.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// DescribeProperty builds the property registration graph against throwaway
// adapters, for tooling that only needs its shape.
func DescribeProperty() ([]journey.StepDescriptor, error) {
	db, err := sqlite.Open(":memory:", sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	registrar, err := sqlite.NewRegistrar(db)
	if err != nil {
		return nil, err
	}
	book := memory.NewAddressBook(nil, nil)
	state := journey.NewStateService(memory.NewStore().Session("describe"), "describe")

	j, err := property.New(state, property.Deps{
		Registrar:        registrar,
		Addresses:        book,
		LocalAuthorities: book,
	})
	if err != nil {
		return nil, err
	}
	return j.Graph().Describe(), nil
}
