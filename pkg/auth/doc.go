// Package auth resolves the caller of an API request.
//
// A request carries an "Authorization: Bearer <token>" header. The token is
// checked by a TokenVerifier; OIDCVerifier validates signature, issuer,
// audience and expiry against the identity provider's published keys. Every
// verification failure is reported as ErrInvalidCredential so callers cannot
// tell an expired token from a forged one.
//
// # Development bypass
//
// Local development can skip the identity provider by sending
//
//	Authorization: Bearer dev-token
//	X-Dev-User-Id: dev-user-123
//
// The bypass exists only in binaries built with -tags devauth, and
// NewDevBypass refuses to construct it outside the development environment.
// In any other build the sentinel is just an unverifiable token.
//
// The resolved Identity is attached to the request context and read back with
// IdentityFromContext.
package auth
