//go:build !devauth

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDevBypass_NotCompiled(t *testing.T) {
	assert.False(t, DevBypassCompiled)

	for _, development := range []bool{true, false} {
		bypass, err := NewDevBypass(development)
		assert.ErrorIs(t, err, ErrDevBypassUnavailable)
		assert.Nil(t, bypass)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+DevBypassToken)
	req.Header.Set(DevUserHeader, "dev-user-123")

	var bypass *DevBypass
	_, ok := bypass.Resolve(req)
	assert.False(t, ok)
}
