// Package middleware provides the authentication gateway and rate limiting
// that sit in front of every /api route.
//
// # Gateway
//
// Gateway resolves the caller of each request and attaches an *auth.Identity
// to the context:
//
//	gateway := middleware.NewGateway(verifier, provisioner,
//		middleware.WithDevBypass(bypass),
//		middleware.WithGatewayMetrics(metrics),
//		middleware.WithAuditLogger(audit),
//	)
//	api.Use(gateway.Handler)
//
// A missing or malformed Authorization header yields 401 "No token provided",
// a token the verifier rejects yields 401 "Invalid token", and a subject that
// cannot be provisioned yields 500 "Failed to provision user". The wrapped
// handler runs only after all three steps succeed.
//
// # Rate limiting
//
// RateLimitMiddleware keys on the authenticated subject and must be installed
// after the gateway. Two Limiter implementations exist:
//
//	limiter := middleware.NewLocalRateLimiter(20, 40)                     // per process
//	limiter := middleware.NewDistributedRateLimiter(redisClient, 20, 40, "") // shared via Redis
//	api.Use(middleware.NewRateLimitMiddleware(limiter, metrics, audit).Handler)
//
// The Redis limiter fails open when Redis is unreachable.
package middleware
