//go:build devauth

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDevBypass_RequiresDevelopment(t *testing.T) {
	assert.True(t, DevBypassCompiled)

	_, err := NewDevBypass(false)
	assert.ErrorIs(t, err, ErrDevBypassForbidden)

	bypass, err := NewDevBypass(true)
	require.NoError(t, err)
	assert.NotNil(t, bypass)
}

func TestDevBypass_Resolve(t *testing.T) {
	bypass, err := NewDevBypass(true)
	require.NoError(t, err)

	tests := []struct {
		name      string
		auth      string
		subject   string
		wantMatch bool
	}{
		{"both headers", "Bearer dev-token", "dev-user-123", true},
		{"sentinel without subject", "Bearer dev-token", "", false},
		{"subject without sentinel", "Bearer real.jwt.token", "dev-user-123", false},
		{"no headers", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.subject != "" {
				req.Header.Set(DevUserHeader, tt.subject)
			}

			identity, ok := bypass.Resolve(req)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, tt.subject, identity.Subject)
				assert.Equal(t, SourceDevBypass, identity.Source)
			}
		})
	}
}
