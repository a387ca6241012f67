package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamed/tracker/pkg/validation"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func mustPatch(t *testing.T, body string) validation.Patch {
	t.Helper()
	p, err := validation.ParsePatch([]byte(body))
	require.NoError(t, err)
	return p
}

func TestItemApply_Create(t *testing.T) {
	item := NewItem("item-1", "owner-1", testNow)
	err := item.Apply(mustPatch(t, `{
		"name": "  Ibuprofen  ",
		"category": "medications",
		"quantity": 2,
		"minQuantity": 1,
		"strength": "200mg",
		"expirationDate": "2027-03-31",
		"location": "galley",
		"photos": ["https://img.example/a.jpg"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Ibuprofen", item.Name)
	assert.Equal(t, CategoryMedications, item.Category)
	assert.Equal(t, LocationGalley, item.Location)
	assert.Equal(t, 2, item.Quantity)
	require.NotNil(t, item.Strength)
	assert.Equal(t, "200mg", *item.Strength)
	require.NotNil(t, item.ExpirationDate)
	assert.Equal(t, time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC), *item.ExpirationDate)
	assert.Equal(t, []string{"https://img.example/a.jpg"}, item.Photos)
}

func TestItemApply_Defaults(t *testing.T) {
	item := NewItem("item-1", "owner-1", testNow)
	require.NoError(t, item.Apply(mustPatch(t, `{"name":"Gauze"}`)))

	assert.Equal(t, CategoryOther, item.Category)
	assert.Equal(t, LocationOther, item.Location)
	assert.Equal(t, []string{}, item.Photos)
	assert.Nil(t, item.ExpirationDate)
}

func TestItemApply_IgnoresServerFields(t *testing.T) {
	item := NewItem("item-1", "owner-1", testNow)
	err := item.Apply(mustPatch(t, `{
		"name": "Splint",
		"id": "forged",
		"userId": "someone-else",
		"createdAt": "2001-01-01T00:00:00Z",
		"updatedAt": "2001-01-01T00:00:00Z"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "owner-1", item.UserID)
	assert.Equal(t, testNow, item.CreatedAt)
	assert.Equal(t, testNow, item.UpdatedAt)
}

func TestItemApply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"quantity":1}`, "name"},
		{"blank name", `{"name":"   "}`, "name"},
		{"null name", `{"name":null}`, "name"},
		{"negative quantity", `{"name":"x","quantity":-1}`, "quantity"},
		{"negative min quantity", `{"name":"x","minQuantity":-3}`, "minQuantity"},
		{"fractional quantity", `{"name":"x","quantity":1.5}`, "quantity"},
		{"unknown category", `{"name":"x","category":"snacks"}`, "category"},
		{"unknown location", `{"name":"x","location":"bilge"}`, "location"},
		{"invalid date", `{"name":"x","expirationDate":"next tuesday"}`, "expirationDate"},
		{"negative doses", `{"name":"x","dosesLeft":-1}`, "dosesLeft"},
		{"photos not a list", `{"name":"x","photos":"a.jpg"}`, "photos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewItem("item-1", "owner-1", testNow)
			err := item.Apply(mustPatch(t, tt.body))
			fe, ok := validation.AsFieldError(err)
			require.True(t, ok, "expected field error, got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestItemApply_InvalidDateMessage(t *testing.T) {
	item := NewItem("item-1", "owner-1", testNow)
	err := item.Apply(mustPatch(t, `{"name":"x","expirationDate":"2026-13-45"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid date", verr.Message)
}

func TestItemApply_Update(t *testing.T) {
	exp := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := "top shelf"
	item := NewItem("item-1", "owner-1", testNow)
	item.Name = "Bandages"
	item.Quantity = 5
	item.ExpirationDate = &exp
	item.Notes = &notes
	item.Location = LocationCockpitLegacy

	require.NoError(t, item.Apply(mustPatch(t, `{"quantity":3,"expirationDate":null}`)))

	assert.Equal(t, "Bandages", item.Name, "absent fields are untouched")
	assert.Equal(t, 3, item.Quantity)
	assert.Nil(t, item.ExpirationDate, "null clears optional fields")
	assert.Equal(t, &notes, item.Notes)
	assert.Equal(t, LocationCockpitLegacy, item.Location, "legacy locations remain valid")

	require.NoError(t, item.Apply(mustPatch(t, `{"notes":""}`)))
	assert.Nil(t, item.Notes)
}

func TestItemStatus(t *testing.T) {
	past := testNow.AddDate(0, 0, -1)
	soon := testNow.AddDate(0, 0, 10)
	later := testNow.AddDate(1, 0, 0)

	tests := []struct {
		name string
		item Item
		want Status
	}{
		{"ok", Item{Quantity: 5, MinQuantity: 1, ExpirationDate: &later}, StatusOK},
		{"out of stock", Item{Quantity: 0, MinQuantity: 1}, StatusCritical},
		{"expired", Item{Quantity: 3, MinQuantity: 1, ExpirationDate: &past}, StatusExpired},
		{"low stock", Item{Quantity: 1, MinQuantity: 1}, StatusLowStock},
		{"expiring soon", Item{Quantity: 4, MinQuantity: 1, ExpirationDate: &soon}, StatusExpiringSoon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Status(testNow, 30))
		})
	}
}
