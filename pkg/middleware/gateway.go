package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/contextkeys"
	"github.com/seamed/tracker/pkg/httputil"
	"github.com/seamed/tracker/pkg/observability"
)

// Auth outcome labels for seamed_auth_attempts_total
const (
	OutcomeVerified        = "verified"
	OutcomeDevBypass       = "dev_bypass"
	OutcomeMissing         = "missing"
	OutcomeInvalid         = "invalid"
	OutcomeProvisionFailed = "provision_failed"
)

// Client-facing error bodies. Causes are logged, never returned.
const (
	msgNoToken         = "No token provided"
	msgInvalidToken    = "Invalid token"
	msgProvisionFailed = "Failed to provision user"
)

// Provisioner ensures a local user exists for a resolved subject
type Provisioner interface {
	EnsureProvisioned(ctx context.Context, subject, emailHint string) error
}

// Gateway authenticates every request before it reaches a handler.
//
// A request either carries the development bypass (when one is configured)
// or a bearer token that the verifier accepts. The resolved subject is then
// provisioned and the identity is attached to the request context. Any
// failure short-circuits with 401 or 500 and the wrapped handler never runs.
type Gateway struct {
	verifier    auth.TokenVerifier
	bypass      *auth.DevBypass
	provisioner Provisioner
	metrics     *observability.Metrics
	audit       *auth.AuditLogger
	logger      *observability.Logger
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithDevBypass enables the development bypass. A nil bypass is ignored.
func WithDevBypass(b *auth.DevBypass) GatewayOption {
	return func(g *Gateway) { g.bypass = b }
}

// WithGatewayMetrics counts auth outcomes
func WithGatewayMetrics(m *observability.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithAuditLogger records auth events
func WithAuditLogger(a *auth.AuditLogger) GatewayOption {
	return func(g *Gateway) { g.audit = a }
}

// WithGatewayLogger sets the fallback logger
func WithGatewayLogger(l *observability.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates an auth gateway
func NewGateway(verifier auth.TokenVerifier, provisioner Provisioner, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		verifier:    verifier,
		provisioner: provisioner,
		logger:      observability.NewLogger(observability.InfoLevel, nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler wraps next with authentication
func (g *Gateway) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := g.loggerFor(r.Context())

		identity, outcome, err := g.resolve(r)
		if err != nil {
			g.count(outcome)
			g.audit.LogFromRequest(r, auth.AuditEvent{
				Action: auth.ActionAuthFailure,
				Status: auth.StatusFailure,
				Reason: outcome,
			})
			if errors.Is(err, auth.ErrMissingCredential) {
				logger.Debug("request without bearer credential")
				httputil.WriteUnauthorized(w, msgNoToken)
				return
			}
			logger.WithError(err).Warn("token verification failed")
			httputil.WriteUnauthorized(w, msgInvalidToken)
			return
		}

		if err := g.provisioner.EnsureProvisioned(r.Context(), identity.Subject, identity.Email); err != nil {
			g.count(OutcomeProvisionFailed)
			logger.WithError(err).WithField("subject", identity.Subject).Error("user provisioning failed")
			httputil.WriteInternalError(w, msgProvisionFailed)
			return
		}

		g.count(outcome)
		action := auth.ActionAuthSuccess
		if identity.Source == auth.SourceDevBypass {
			action = auth.ActionDevBypass
		}
		g.audit.LogFromRequest(r, auth.AuditEvent{
			Action:  action,
			Status:  auth.StatusSuccess,
			Subject: identity.Subject,
		})

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// resolve walks the credential states: bypass, then bearer extraction, then verification
func (g *Gateway) resolve(r *http.Request) (*auth.Identity, string, error) {
	if identity, ok := g.bypass.Resolve(r); ok {
		return identity, OutcomeDevBypass, nil
	}

	token, err := auth.ExtractBearerToken(r)
	if err != nil {
		return nil, OutcomeMissing, err
	}

	identity, err := g.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, OutcomeInvalid, err
	}
	if identity == nil || identity.Subject == "" {
		return nil, OutcomeInvalid, auth.ErrInvalidCredential
	}
	return identity, OutcomeVerified, nil
}

func (g *Gateway) count(outcome string) {
	if g.metrics != nil {
		g.metrics.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

func (g *Gateway) loggerFor(ctx context.Context) *observability.Logger {
	if _, ok := ctx.Value(contextkeys.LoggerKey).(*observability.Logger); ok {
		return observability.FromContext(ctx)
	}
	return g.logger
}
