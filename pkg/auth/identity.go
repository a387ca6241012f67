package auth

import (
	"context"
	"errors"

	"github.com/seamed/tracker/pkg/contextkeys"
)

// Source records how an identity was established
type Source string

const (
	SourceToken     Source = "token"
	SourceDevBypass Source = "dev_bypass"
)

// Identity is the resolved caller of a request. Subject is the identity
// provider's stable user identifier and doubles as the local user id.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Source  Source `json:"source"`
}

var (
	// ErrMissingCredential means no usable Authorization header was sent
	ErrMissingCredential = errors.New("no bearer credential provided")

	// ErrInvalidCredential covers every verification failure; the cause is
	// wrapped for server-side logs only.
	ErrInvalidCredential = errors.New("invalid bearer credential")

	// ErrAuthorizationDenied means the resource is missing or owned by someone else
	ErrAuthorizationDenied = errors.New("not authorized for resource")
)

// WithIdentity attaches the resolved identity to the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	ctx = contextkeys.WithIdentity(ctx, identity)
	return contextkeys.WithUserID(ctx, identity.Subject)
}

// IdentityFromContext returns the identity attached by the gateway
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	if !ok || identity == nil || identity.Subject == "" {
		return nil, false
	}
	return identity, true
}
