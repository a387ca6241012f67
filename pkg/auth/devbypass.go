package auth

import "errors"

const (
	// DevBypassToken is the sentinel bearer value of the development bypass
	DevBypassToken = "dev-token"

	// DevUserHeader carries the caller-asserted subject
	DevUserHeader = "X-Dev-User-Id"
)

var (
	// ErrDevBypassUnavailable is returned when the binary was built without
	// the devauth tag
	ErrDevBypassUnavailable = errors.New("development auth bypass is not compiled into this build")

	// ErrDevBypassForbidden is returned outside the development environment
	ErrDevBypassForbidden = errors.New("development auth bypass is only allowed in the development environment")
)
