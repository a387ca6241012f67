package users

import (
	"fmt"
	"time"

	"github.com/seamed/tracker/pkg/validation"
)

// User is the local record of an identity-provider subject
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Theme is the UI colour scheme preference
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Role is the user's role aboard
type Role string

const (
	RoleCaptain Role = "captain"
	RoleMedic   Role = "medic"
	RoleCrew    Role = "crew"
)

// Tier is the subscription tier
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierFleet Tier = "fleet"
)

// Settings holds per-user preferences, one row per user
type Settings struct {
	UserID                string    `json:"-"`
	VesselID              *string   `json:"vesselId,omitempty"`
	VesselName            *string   `json:"vesselName,omitempty"`
	LowStockThreshold     int       `json:"lowStockThreshold"`
	ExpirationWarningDays []int     `json:"expirationWarningDays"`
	Theme                 Theme     `json:"theme"`
	UserRole              Role      `json:"userRole"`
	SubscriptionTier      Tier      `json:"subscriptionTier"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Defaults applied at provisioning time
const (
	DefaultFirstName         = "New"
	DefaultLastName          = "Sailor"
	DefaultLowStockThreshold = 25
	placeholderEmailDomain   = "users.seamed.local"
)

// DefaultExpirationWarningDays returns a fresh copy of the default warning windows
func DefaultExpirationWarningDays() []int {
	return []int{30, 60, 90}
}

// NewUser builds the record created for a first-seen subject
func NewUser(subject, emailHint string, now time.Time) *User {
	email := emailHint
	if email == "" {
		email = PlaceholderEmail(subject)
	}
	return &User{
		ID:        subject,
		Email:     email,
		FirstName: DefaultFirstName,
		LastName:  DefaultLastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlaceholderEmail derives a deterministic address for subjects without an email claim
func PlaceholderEmail(subject string) string {
	return fmt.Sprintf("%s@%s", subject, placeholderEmailDomain)
}

// DefaultSettings returns the settings created alongside a new user
func DefaultSettings(userID string, now time.Time) *Settings {
	return &Settings{
		UserID:                userID,
		LowStockThreshold:     DefaultLowStockThreshold,
		ExpirationWarningDays: DefaultExpirationWarningDays(),
		Theme:                 ThemeSystem,
		UserRole:              RoleCaptain,
		SubscriptionTier:      TierFree,
		UpdatedAt:             now,
	}
}

// Apply updates the settings with the fields present in patch
func (s *Settings) Apply(patch validation.Patch) error {
	steps := []func() error{
		func() error { return patch.OptionalString("vesselId", &s.VesselID) },
		func() error { return patch.OptionalString("vesselName", &s.VesselName) },
		func() error { return patch.NonNegativeInt("lowStockThreshold", &s.LowStockThreshold) },
		func() error { return patch.PositiveIntSlice("expirationWarningDays", &s.ExpirationWarningDays) },
		func() error { return decodeEnum(patch, "theme", &s.Theme, ThemeLight, ThemeDark, ThemeSystem) },
		func() error { return decodeEnum(patch, "userRole", &s.UserRole, RoleCaptain, RoleMedic, RoleCrew) },
		func() error {
			return decodeEnum(patch, "subscriptionTier", &s.SubscriptionTier, TierFree, TierPro, TierFleet)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if s.LowStockThreshold > 100 {
		return validation.NewFieldError("lowStockThreshold", "must be a percentage between 0 and 100")
	}
	return nil
}

func decodeEnum[T ~string](patch validation.Patch, field string, dst *T, allowed ...T) error {
	var raw string
	if err := patch.String(field, &raw); err != nil {
		return err
	}
	if !patch.Has(field) {
		return nil
	}
	if err := validation.OneOf(field, T(raw), allowed...); err != nil {
		return err
	}
	*dst = T(raw)
	return nil
}
