package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/seamed/tracker/pkg/api"
	"github.com/seamed/tracker/pkg/async"
	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/config"
	"github.com/seamed/tracker/pkg/inventory"
	"github.com/seamed/tracker/pkg/jobs"
	"github.com/seamed/tracker/pkg/middleware"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/storage"
	"github.com/seamed/tracker/pkg/swagger"
	"github.com/seamed/tracker/pkg/templates"
	"github.com/seamed/tracker/pkg/users"
)

var version = "dev"

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "Apply database migrations and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithFields(map[string]interface{}{"service": cfg.Observability.OTelServiceName, "env": string(cfg.Environment)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if *migrateOnly {
		db.Close()
		logger.Info("Migrations applied")
		return
	}

	tp, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RateLimit.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	audit := auth.NewAuditLogger(logger)

	userStore := users.NewSQLStore(db)
	itemStore := inventory.NewSQLStore(db)

	cache, err := users.NewCache(cfg.Auth.ProvisionCacheSize)
	if err != nil {
		log.Fatalf("Failed to create provisioning cache: %v", err)
	}
	provisioner := users.NewProvisioner(userStore, cache,
		users.WithMetrics(metrics), users.WithLogger(logger), users.WithAuditLogger(audit))

	gateway, err := newGateway(ctx, cfg, provisioner, metrics, audit, logger)
	if err != nil {
		log.Fatalf("Failed to configure authentication: %v", err)
	}

	tmpl, err := newTemplateSource(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	deps := api.Deps{
		Inventory:      itemStore,
		Users:          userStore,
		Templates:      tmpl,
		Gateway:        gateway.Handler,
		Health:         observability.NewHealthChecker(db, redisClient, version),
		Audit:          audit,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}
	if cfg.Observability.MetricsEnabled {
		deps.Metrics = metrics
		deps.Registry = registry
	}

	if cfg.RateLimit.Enabled {
		var limiter middleware.Limiter
		if redisClient != nil {
			limiter = middleware.NewDistributedRateLimiter(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, middleware.DefaultRateLimitPrefix)
		} else {
			local := middleware.NewLocalRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			local.StartCleanup(ctx, time.Minute)
			limiter = local
		}
		deps.RateLimit = middleware.NewRateLimitMiddleware(limiter, metrics, audit).Handler
	}

	server := api.NewServer(deps)
	docs, err := swagger.NewHandlers(cfg.Server.APIBaseURL)
	if err != nil {
		log.Fatalf("Failed to load API documentation: %v", err)
	}
	docs.RegisterRoutes(server.Router())

	scheduler := jobs.NewScheduler(logger)
	refresher := jobs.NewStatsRefresher(userStore, itemStore, db, metrics)
	if err := scheduler.Add("refresh-stats", cfg.Jobs.StatsSchedule, time.Minute, refresher.Refresh); err != nil {
		log.Fatalf("Failed to schedule stats refresh: %v", err)
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(server, "seamed-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.Register("scheduler", scheduler.Stop)
	shutdown.Register("database", func(context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown.Register("otel", func(ctx context.Context) error { return observability.ShutdownOTel(ctx, tp, logger) })

	async.Go(ctx, logger, "http-server", func(context.Context) error {
		logger.WithField("addr", httpServer.Addr).Info("Starting SeaMed API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return err
		}
		return nil
	})

	if err := shutdown.WaitForShutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

func newGateway(ctx context.Context, cfg *config.Config, provisioner *users.Provisioner, metrics *observability.Metrics, audit *auth.AuditLogger, logger *observability.Logger) (*middleware.Gateway, error) {
	var (
		bypass *auth.DevBypass
		err    error
	)
	if cfg.Auth.DevAuthEnabled {
		bypass, err = auth.NewDevBypass(cfg.Environment == config.Development)
		if err != nil {
			return nil, err
		}
		logger.Warn("Development authentication bypass is enabled")
	}

	var verifier auth.TokenVerifier = rejectAll{}
	if cfg.Auth.Issuer != "" {
		verifier, err = auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
			IssuerURL: cfg.Auth.Issuer,
			ClientID:  cfg.Auth.ClientID,
			Audience:  cfg.Auth.Audience,
		})
		if err != nil {
			return nil, err
		}
	}

	return middleware.NewGateway(verifier, provisioner,
		middleware.WithDevBypass(bypass),
		middleware.WithGatewayMetrics(metrics),
		middleware.WithAuditLogger(audit),
		middleware.WithGatewayLogger(logger),
	), nil
}

func newTemplateSource(ctx context.Context, cfg *config.Config, logger *observability.Logger) (api.TemplateSource, error) {
	if cfg.Templates.Dir == "" {
		return templates.Builtin()
	}

	reloader, err := templates.NewReloader(cfg.Templates.Dir, cfg.Templates.ReloadDelay, logger)
	if err != nil {
		return nil, err
	}
	async.Go(ctx, logger, "template-watcher", reloader.Watch)
	return reloader, nil
}

// rejectAll verifies nothing. It is used when only the development bypass is
// configured.
type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (*auth.Identity, error) {
	return nil, auth.ErrInvalidCredential
}
