//go:build !devauth

package auth

import "net/http"

// DevBypassCompiled reports whether this build contains the bypass
const DevBypassCompiled = false

// DevBypass is an empty shell in builds without the devauth tag
type DevBypass struct{}

// NewDevBypass always fails in builds without the devauth tag
func NewDevBypass(development bool) (*DevBypass, error) {
	return nil, ErrDevBypassUnavailable
}

// Resolve never matches in builds without the devauth tag
func (b *DevBypass) Resolve(r *http.Request) (*Identity, bool) {
	return nil, false
}
