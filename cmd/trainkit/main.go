// Command trainkit runs the tenant edge of the training-course platform.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/trainkit/internal/api"
	"github.com/dmitrymomot/trainkit/internal/auth"
	"github.com/dmitrymomot/trainkit/internal/config"
	"github.com/dmitrymomot/trainkit/internal/metrics"
	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/httpserver"
	"github.com/dmitrymomot/trainkit/pkg/jwt"
	"github.com/dmitrymomot/trainkit/pkg/logger"
	"github.com/dmitrymomot/trainkit/pkg/pg"
	"github.com/dmitrymomot/trainkit/pkg/redis"
	"github.com/dmitrymomot/trainkit/pkg/requestid"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const serviceName = "trainkit"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("trainkit stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewFromConfig(cfg.Log, serviceName, logger.WithContextExtractors(
		requestid.LoggerExtractor(),
		tenant.LoggerExtractor(),
		guard.LoggerExtractor(),
	))
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Postgres.AutoMigrate {
		if err := pg.Migrate(ctx, pool, store.Migrations, store.MigrationsDir, cfg.Postgres, log); err != nil {
			return err
		}
	}

	tenants := store.NewTenants(pool)
	principals := store.NewPrincipals(pool)

	if cfg.App.BootstrapAdminEmail != "" {
		created, err := auth.EnsureSuperAdmin(ctx, principals, cfg.App.BootstrapAdminEmail, cfg.App.BootstrapAdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.InfoContext(ctx, "bootstrap super admin created", slog.String("email", cfg.App.BootstrapAdminEmail))
		}
	}

	m := metrics.New()

	cache, err := newCache(cfg.App)
	if err != nil {
		return err
	}

	readiness := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}
	resolverOpts := []tenant.ResolverOption{
		tenant.WithCache(cache),
		tenant.WithCacheTTL(cfg.App.TenantCacheTTL),
		tenant.WithNegativeCacheTTL(cfg.App.TenantNegativeCacheTTL),
		tenant.WithObserver(m),
		tenant.WithResolverLogger(log.With(logger.Component("tenant"))),
	}

	var broadcaster *tenant.RedisBroadcaster
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		broadcaster = tenant.NewRedisBroadcaster(client, cfg.App.TenantClearChannel, log.With(logger.Component("tenant_broadcast")))
		resolverOpts = append(resolverOpts, tenant.WithBroadcaster(broadcaster))
		readiness = append(readiness, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	} else {
		log.InfoContext(ctx, "redis disabled, tenant cache clears stay local")
	}

	resolver := tenant.NewResolver(tenants, resolverOpts...)
	defer func() { _ = resolver.Close() }()

	tokens, err := jwt.NewFromString(cfg.App.JWTSecret)
	if err != nil {
		return err
	}

	g := guard.New(tokens, principals,
		guard.WithLastLoginRecorder(principals),
		guard.WithRecordInterval(cfg.App.LastLoginInterval),
		guard.WithObserver(m),
		guard.WithLogger(log.With(logger.Component("guard"))),
	)
	defer g.Wait()

	authn := auth.NewService(principals, tokens,
		auth.WithTokenTTL(cfg.App.TokenTTL),
		auth.WithLogger(log.With(logger.Component("auth"))),
	)

	apiServer := api.New(api.Deps{
		MainDomain:     cfg.App.MainDomain,
		Resolver:       resolver,
		Tenants:        tenants,
		Auth:           authn,
		Guard:          g,
		Logger:         log,
		Observer:       m,
		MetricsHandler: m.Handler(),
		Readiness:      readiness,
		TrustProxy:     cfg.App.TrustProxy,
		LoginRate:      cfg.App.LoginRateLimit,
		LoginBurst:     cfg.App.LoginRateBurst,
	})

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log.With(logger.Component("http"))))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		apiServer.Run(ctx)
		return nil
	})
	if broadcaster != nil {
		eg.Go(func() error {
			if err := broadcaster.Listen(ctx, resolver); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	eg.Go(func() error {
		return srv.Run(ctx, apiServer)
	})

	err = eg.Wait()
	log.InfoContext(context.WithoutCancel(ctx), "trainkit stopped")
	return err
}

func newCache(app config.App) (tenant.Cache, error) {
	switch app.TenantCacheBackend {
	case config.CacheRistretto:
		return tenant.NewRistrettoCache(app.TenantCacheSize)
	case config.CacheNone:
		return tenant.NewNoopCache(), nil
	default:
		return tenant.NewMemoryCache(app.TenantCacheSize), nil
	}
}
