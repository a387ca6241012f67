package auth

import (
	"net/http"
	"strings"
)

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header, or ErrMissingCredential when the header is absent or malformed.
func ExtractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingCredential
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrMissingCredential
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}
