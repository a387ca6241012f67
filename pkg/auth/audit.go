package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/seamed/tracker/pkg/observability"
)

// Audit actions
const (
	ActionAuthSuccess       = "auth.success"
	ActionAuthFailure       = "auth.failure"
	ActionDevBypass         = "auth.dev_bypass"
	ActionUserProvision     = "user.provision"
	ActionAccessDenied      = "resource.access_denied"
	ActionRateLimitExceeded = "ratelimit.exceeded"
)

// Status values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditEvent is a single security-relevant event
type AuditEvent struct {
	Action     string
	Status     string
	Subject    string
	ResourceID string
	Reason     string
}

// AuditLogger writes security events as structured log lines with an
// "audit" marker so they can be routed separately.
type AuditLogger struct {
	logger *observability.Logger
}

// NewAuditLogger creates an audit logger on top of the application logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.WithField("audit", true)}
}

// LogFromRequest records an event with request metadata
func (al *AuditLogger) LogFromRequest(r *http.Request, event AuditEvent) {
	if al == nil {
		return
	}
	al.write(al.logger.WithFields(map[string]interface{}{
		"ip_address": clientIP(r),
		"user_agent": r.UserAgent(),
		"path":       r.URL.Path,
	}), event)
}

// Log records an event raised outside a request handler, tagged with the
// trace of ctx when there is one
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}
	al.write(observability.UpdateLoggerWithTraceContext(ctx, al.logger), event)
}

func (al *AuditLogger) write(entry *observability.Logger, event AuditEvent) {
	entry = entry.WithFields(map[string]interface{}{
		"action": event.Action,
		"status": event.Status,
	})
	if event.Subject != "" {
		entry = entry.WithField("subject", event.Subject)
	}
	if event.ResourceID != "" {
		entry = entry.WithField("resource_id", event.ResourceID)
	}
	if event.Reason != "" {
		entry = entry.WithField("reason", event.Reason)
	}

	switch event.Status {
	case StatusSuccess:
		entry.Info("audit event")
	default:
		entry.Warn("audit event")
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
