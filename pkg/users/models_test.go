package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamed/tracker/pkg/validation"
)

func TestNewUser(t *testing.T) {
	now := time.Now()

	u := NewUser("00u1", "", now)
	assert.Equal(t, "00u1@users.seamed.local", u.Email)
	assert.Equal(t, "New", u.FirstName)
	assert.Equal(t, "Sailor", u.LastName)

	u = NewUser("00u1", "skipper@example.com", now)
	assert.Equal(t, "skipper@example.com", u.Email)
}

func TestDefaultSettings_FreshSlice(t *testing.T) {
	a := DefaultSettings("a", time.Now())
	b := DefaultSettings("b", time.Now())
	a.ExpirationWarningDays[0] = 1
	assert.Equal(t, 30, b.ExpirationWarningDays[0])
}

func TestSettings_Apply(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		check     func(t *testing.T, s *Settings)
	}{
		{
			name: "partial update",
			body: `{"theme":"dark","vesselName":"Wanderer"}`,
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, ThemeDark, s.Theme)
				require.NotNil(t, s.VesselName)
				assert.Equal(t, "Wanderer", *s.VesselName)
				assert.Equal(t, RoleCaptain, s.UserRole)
			},
		},
		{
			name: "role and tier",
			body: `{"userRole":"medic","subscriptionTier":"fleet"}`,
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, RoleMedic, s.UserRole)
				assert.Equal(t, TierFleet, s.SubscriptionTier)
			},
		},
		{name: "unknown theme", body: `{"theme":"neon"}`, wantField: "theme"},
		{name: "unknown role", body: `{"userRole":"admiral"}`, wantField: "userRole"},
		{name: "threshold above 100", body: `{"lowStockThreshold":150}`, wantField: "lowStockThreshold"},
		{name: "empty warning days", body: `{"expirationWarningDays":[]}`, wantField: "expirationWarningDays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings("00u1", time.Now())
			patch, err := validation.ParsePatch([]byte(tt.body))
			require.NoError(t, err)

			err = s.Apply(patch)
			if tt.wantField != "" {
				fe, ok := validation.AsFieldError(err)
				require.True(t, ok, "expected field error, got %v", err)
				assert.Equal(t, tt.wantField, fe.Field)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}
