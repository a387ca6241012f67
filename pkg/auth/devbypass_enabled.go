//go:build devauth

package auth

import (
	"net/http"
	"strings"
)

// DevBypassCompiled reports whether this build contains the bypass
const DevBypassCompiled = true

// DevBypass accepts a caller-asserted subject without verification. It is
// compiled only with the devauth tag and constructed only in development.
type DevBypass struct{}

// NewDevBypass returns the bypass when running in the development environment
func NewDevBypass(development bool) (*DevBypass, error) {
	if !development {
		return nil, ErrDevBypassForbidden
	}
	return &DevBypass{}, nil
}

// Resolve matches only when both the sentinel bearer value and a non-empty
// subject header are present.
func (b *DevBypass) Resolve(r *http.Request) (*Identity, bool) {
	if b == nil {
		return nil, false
	}
	if r.Header.Get("Authorization") != "Bearer "+DevBypassToken {
		return nil, false
	}
	subject := strings.TrimSpace(r.Header.Get(DevUserHeader))
	if subject == "" {
		return nil, false
	}
	return &Identity{Subject: subject, Source: SourceDevBypass}, true
}
