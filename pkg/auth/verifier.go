package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// DefaultAudience is the audience of access tokens minted by the default
// authorization server
const DefaultAudience = "api://default"

// TokenVerifier validates a raw bearer token and returns the caller identity.
// Every failure wraps ErrInvalidCredential.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// OIDCVerifier verifies JWT access tokens against an OpenID Connect issuer's
// published signing keys, checking issuer, audience and expiry.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	clientID string
}

// OIDCConfig configures an OIDCVerifier
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
	Audience  string
}

// NewOIDCVerifier discovers the issuer's configuration and key set
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("OIDC issuer URL is required")
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.Audience}),
		clientID: cfg.ClientID,
	}, nil
}

type accessTokenClaims struct {
	Email    string `json:"email"`
	ClientID string `json:"cid"`
}

// Verify implements TokenVerifier
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if token.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}

	var claims accessTokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims: %v", ErrInvalidCredential, err)
	}

	if v.clientID != "" && claims.ClientID != "" && claims.ClientID != v.clientID {
		return nil, fmt.Errorf("%w: token issued to client %q", ErrInvalidCredential, claims.ClientID)
	}

	return &Identity{
		Subject: token.Subject,
		Email:   claims.Email,
		Source:  SourceToken,
	}, nil
}
