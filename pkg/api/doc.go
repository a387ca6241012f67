// Package api exposes the inventory, settings and template endpoints.
//
// Every route under /api sits behind the authentication gateway, so handlers
// read the caller from the request context and never from the body. Item
// routes load the record first and answer 403 for both unknown and foreign
// ids; updates and deletes are scoped by owner in SQL as well.
//
// Health probes and /metrics are mounted at the root without authentication.
package api
