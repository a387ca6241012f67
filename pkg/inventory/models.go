package inventory

import (
	"strings"
	"time"

	"github.com/seamed/tracker/pkg/validation"
)

// Category groups supplies for display and reporting
type Category string

const (
	CategoryFirstAid    Category = "first-aid"
	CategoryMedications Category = "medications"
	CategoryTools       Category = "tools"
	CategoryEmergency   Category = "emergency"
	CategoryHygiene     Category = "hygiene"
	CategoryDiagnostic  Category = "diagnostic"
	CategoryPPE         Category = "ppe"
	CategoryOther       Category = "other"
)

// Categories lists every accepted category
var Categories = []Category{
	CategoryFirstAid, CategoryMedications, CategoryTools, CategoryEmergency,
	CategoryHygiene, CategoryDiagnostic, CategoryPPE, CategoryOther,
}

// Location is where an item is stowed aboard
type Location string

const (
	LocationHeadFore         Location = "head-fore"
	LocationHeadAft          Location = "head-aft"
	LocationStbdCabinetFore  Location = "stbd-cabinet-settee-fore"
	LocationStbdCabinetAft   Location = "stbd-cabinet-settee-aft"
	LocationGalley           Location = "galley"
	LocationOther            Location = "other"
	LocationMainCabinLegacy  Location = "main-cabin"
	LocationCockpitLegacy    Location = "cockpit"
	LocationNavStationLegacy Location = "nav-station"
	LocationForepeakLegacy   Location = "forepeak"
	LocationLazaretteLegacy  Location = "lazarette"
	LocationDeckLockerLegacy Location = "deck-locker"
)

// Locations lists every accepted location, legacy values included so older
// records stay editable.
var Locations = []Location{
	LocationHeadFore, LocationHeadAft, LocationStbdCabinetFore, LocationStbdCabinetAft,
	LocationGalley, LocationOther,
	LocationMainCabinLegacy, LocationCockpitLegacy, LocationNavStationLegacy,
	LocationForepeakLegacy, LocationLazaretteLegacy, LocationDeckLockerLegacy,
}

// ValidationError reports the offending payload field
type ValidationError = validation.FieldError

// Item is one tracked supply owned by exactly one user
type Item struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Nickname       *string    `json:"nickname,omitempty"`
	ChemicalName   *string    `json:"chemicalName,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
	Category       Category   `json:"category"`
	Vessel         *string    `json:"vessel,omitempty"`
	Strength       *string    `json:"strength,omitempty"`
	UnitType       *string    `json:"unitType,omitempty"`
	UnitSize       *string    `json:"unitSize,omitempty"`
	Container      *string    `json:"container,omitempty"`
	ScriptName     *string    `json:"scriptName,omitempty"`
	Quantity       int        `json:"quantity"`
	Remaining      *string    `json:"remaining,omitempty"`
	DosesLeft      *int       `json:"dosesLeft,omitempty"`
	MinQuantity    int        `json:"minQuantity"`
	ExpirationDate *time.Time `json:"expirationDate"`
	Location       Location   `json:"location"`
	Barcode        *string    `json:"barcode,omitempty"`
	Photos         []string   `json:"photos"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewItem returns an item with server-assigned fields and defaults set
func NewItem(id, owner string, now time.Time) *Item {
	return &Item{
		ID:        id,
		UserID:    owner,
		Category:  CategoryOther,
		Location:  LocationOther,
		Photos:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply copies the client-editable fields present in patch onto the item.
// id, userId, createdAt and updatedAt are never read from the patch.
func (it *Item) Apply(patch validation.Patch) error {
	steps := []func() error{
		func() error { return patch.String("name", &it.Name) },
		func() error { return patch.OptionalString("nickname", &it.Nickname) },
		func() error { return patch.OptionalString("chemicalName", &it.ChemicalName) },
		func() error { return patch.OptionalString("brand", &it.Brand) },
		func() error { return applyEnum(patch, "category", &it.Category, Categories...) },
		func() error { return patch.OptionalString("vessel", &it.Vessel) },
		func() error { return patch.OptionalString("strength", &it.Strength) },
		func() error { return patch.OptionalString("unitType", &it.UnitType) },
		func() error { return patch.OptionalString("unitSize", &it.UnitSize) },
		func() error { return patch.OptionalString("container", &it.Container) },
		func() error { return patch.OptionalString("scriptName", &it.ScriptName) },
		func() error { return patch.NonNegativeInt("quantity", &it.Quantity) },
		func() error { return patch.OptionalString("remaining", &it.Remaining) },
		func() error { return patch.OptionalNonNegativeInt("dosesLeft", &it.DosesLeft) },
		func() error { return patch.NonNegativeInt("minQuantity", &it.MinQuantity) },
		func() error { return patch.OptionalDate("expirationDate", &it.ExpirationDate) },
		func() error { return applyEnum(patch, "location", &it.Location, Locations...) },
		func() error { return patch.OptionalString("barcode", &it.Barcode) },
		func() error { return patch.StringSlice("photos", &it.Photos) },
		func() error { return patch.OptionalString("notes", &it.Notes) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	it.Name = strings.TrimSpace(it.Name)
	return it.Validate()
}

// Validate checks invariants that hold for every stored item
func (it *Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return validation.NewFieldError("name", "name is required")
	}
	if it.Quantity < 0 {
		return validation.NewFieldError("quantity", "must not be negative")
	}
	if it.MinQuantity < 0 {
		return validation.NewFieldError("minQuantity", "must not be negative")
	}
	if err := validation.OneOf("category", it.Category, Categories...); err != nil {
		return err
	}
	return validation.OneOf("location", it.Location, Locations...)
}

func applyEnum[T ~string](patch validation.Patch, field string, dst *T, allowed ...T) error {
	if !patch.Has(field) {
		return nil
	}
	var raw string
	if err := patch.String(field, &raw); err != nil {
		return err
	}
	if err := validation.OneOf(field, T(raw), allowed...); err != nil {
		return err
	}
	*dst = T(raw)
	return nil
}

// Status summarises an item's condition at a point in time
type Status string

const (
	StatusOK           Status = "ok"
	StatusLowStock     Status = "low-stock"
	StatusExpiringSoon Status = "expiring-soon"
	StatusExpired      Status = "expired"
	StatusCritical     Status = "critical"
)

// IsExpired reports whether the expiration date has passed
func (it *Item) IsExpired(now time.Time) bool {
	return it.ExpirationDate != nil && it.ExpirationDate.Before(now)
}

// ExpiresWithin reports whether the item expires in [now, now+days]
func (it *Item) ExpiresWithin(now time.Time, days int) bool {
	if it.ExpirationDate == nil || it.ExpirationDate.Before(now) {
		return false
	}
	return !it.ExpirationDate.After(now.AddDate(0, 0, days))
}

// IsLowStock reports whether quantity has reached the reorder level
func (it *Item) IsLowStock() bool {
	return it.Quantity <= it.MinQuantity
}

// Status returns the most urgent condition of the item
func (it *Item) Status(now time.Time, warningDays int) Status {
	switch {
	case it.Quantity == 0:
		return StatusCritical
	case it.IsExpired(now):
		return StatusExpired
	case it.IsLowStock():
		return StatusLowStock
	case it.ExpiresWithin(now, warningDays):
		return StatusExpiringSoon
	default:
		return StatusOK
	}
}
