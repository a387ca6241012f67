package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/contextkeys"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/storage"
)

// ProvisioningError means the user record could not be established even
// after rechecking the store. The caller did nothing wrong.
type ProvisioningError struct {
	Subject string
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision user %q: %v", e.Subject, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Provisioner ensures a local user exists for every authenticated subject
type Provisioner struct {
	store   Store
	cache   Cache
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *observability.Logger
	audit   *auth.AuditLogger
	tracer  trace.Tracer
	now     func() time.Time
}

// ProvisionerOption configures a Provisioner
type ProvisionerOption func(*Provisioner)

// WithMetrics records provisioning outcomes
func WithMetrics(m *observability.Metrics) ProvisionerOption {
	return func(p *Provisioner) { p.metrics = m }
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *observability.Logger) ProvisionerOption {
	return func(p *Provisioner) { p.logger = l }
}

// WithAuditLogger records an audit event for every user created
func WithAuditLogger(a *auth.AuditLogger) ProvisionerOption {
	return func(p *Provisioner) { p.audit = a }
}

// NewProvisioner creates a provisioner over store and cache
func NewProvisioner(store Store, cache Cache, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		store:  store,
		cache:  cache,
		tracer: observability.Tracer(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureProvisioned makes sure a user row with default settings exists for
// subject. It is idempotent, never overwrites an existing user and is safe to
// call concurrently; concurrent first calls for one subject share a single
// store round-trip.
func (p *Provisioner) EnsureProvisioned(ctx context.Context, subject, emailHint string) error {
	if p.cache.Has(subject) {
		p.recordCache("hit")
		return nil
	}
	p.recordCache("miss")

	ch := p.group.DoChan(subject, func() (interface{}, error) {
		// detached so one caller's cancellation does not fail the others
		return nil, p.provision(context.WithoutCancel(ctx), subject, emailHint)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &ProvisioningError{Subject: subject, Err: ctx.Err()}
	}
}

func (p *Provisioner) provision(ctx context.Context, subject, emailHint string) error {
	ctx, span := p.tracer.Start(ctx, "users.provision",
		trace.WithAttributes(attribute.String("user.subject", subject)))
	defer span.End()

	logger := p.loggerFor(ctx).WithField("subject", subject)
	start := time.Now()

	now := p.now()
	created, err := p.store.CreateIfAbsent(ctx, NewUser(subject, emailHint, now), DefaultSettings(subject, now))
	p.observeDuration(time.Since(start))

	if err == nil {
		p.cache.Add(subject)
		if created {
			p.recordResult("created")
			logger.Info("provisioned new user")
			p.audit.Log(ctx, auth.AuditEvent{
				Action:  auth.ActionUserProvision,
				Status:  auth.StatusSuccess,
				Subject: subject,
			})
		} else {
			p.recordResult("existing")
		}
		span.SetAttributes(attribute.Bool("user.created", created))
		return nil
	}

	// A concurrent writer may have created the row between our attempt and now
	if _, getErr := p.store.Get(ctx, subject); getErr == nil {
		p.cache.Add(subject)
		p.recordResult("recovered")
		logger.WithError(err).
			WithField("unique_violation", storage.IsUniqueViolation(err)).
			Warn("provisioning insert failed but user exists, continuing")
		return nil
	} else if !errors.Is(getErr, ErrNotFound) {
		logger = logger.WithField("recheck_error", getErr.Error())
	}

	p.recordResult("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, "provisioning failed")
	logger.WithError(err).Error("failed to provision user")
	return &ProvisioningError{Subject: subject, Err: err}
}

func (p *Provisioner) loggerFor(ctx context.Context) *observability.Logger {
	if _, ok := ctx.Value(contextkeys.LoggerKey).(*observability.Logger); ok || p.logger == nil {
		return observability.FromContext(ctx)
	}
	return observability.UpdateLoggerWithTraceContext(ctx, p.logger)
}

func (p *Provisioner) recordCache(result string) {
	if p.metrics != nil {
		p.metrics.ProvisionCacheLookups.WithLabelValues(result).Inc()
	}
}

func (p *Provisioner) recordResult(result string) {
	if p.metrics != nil {
		p.metrics.ProvisioningTotal.WithLabelValues(result).Inc()
	}
}

func (p *Provisioner) observeDuration(d time.Duration) {
	if p.metrics != nil {
		p.metrics.ProvisioningDuration.Observe(d.Seconds())
	}
}
