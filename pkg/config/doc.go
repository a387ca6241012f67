// Package config loads and validates configuration from environment variables.
//
// Server settings:
//
//	SEAMED_HOST="0.0.0.0"
//	SEAMED_PORT="3001"
//	SEAMED_REQUEST_TIMEOUT="30s"
//	SEAMED_CORS_ORIGINS="https://app.seamed.example"
//
// Auth settings:
//
//	SEAMED_ENV="production"                   # production, staging, development
//	SEAMED_OIDC_ISSUER="https://id.example.com/oauth2/default"   # falls back to OKTA_ISSUER
//	SEAMED_OIDC_CLIENT_ID="0oa..."            # falls back to OKTA_CLIENT_ID
//	SEAMED_OIDC_AUDIENCE="api://default"
//	SEAMED_DEV_AUTH_ENABLED="false"           # development only
//	SEAMED_PROVISION_CACHE_SIZE="0"           # 0 = unbounded
//
// Storage settings:
//
//	SEAMED_DB_DRIVER="postgres"               # postgres, sqlite3
//	SEAMED_DATABASE_URL="postgres://localhost/seamed?sslmode=disable"
//
// Rate limiting:
//
//	SEAMED_RATE_LIMIT_RPS="20"
//	SEAMED_RATE_LIMIT_BURST="40"
//	SEAMED_REDIS_URL="redis://localhost:6379/0"   # optional, shares limits across replicas
//
// Observability settings:
//
//	SEAMED_LOG_LEVEL="info"
//	SEAMED_METRICS_ENABLED="true"
//	SEAMED_OTEL_ENABLED="false"
//	SEAMED_OTEL_ENDPOINT="otel-collector:4317"
//	SEAMED_STATS_SCHEDULE="@every 5m"
package config
