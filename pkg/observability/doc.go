// Package observability provides structured logging, Prometheus metrics, health checks
// and OpenTelemetry tracing.
//
// # Structured Logging
//
// The Logger writes JSON lines through logrus:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", subject).Info("user provisioned")
//
// Request-scoped loggers are stored in the context by httputil.LoggingMiddleware:
//
//	observability.FromContext(r.Context()).WithError(err).Error("update failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// /health and /health/live are liveness probes; /health/ready pings the database and Redis.
//
// # OpenTelemetry
//
//	tp, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, tp, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
