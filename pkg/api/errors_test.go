package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/inventory"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/users"
)

// asCaller stands in for the gateway and attaches a fixed identity
func asCaller(subject string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := &auth.Identity{Subject: subject, Source: auth.SourceToken}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func newMockServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewServer(Deps{
		Inventory: inventory.NewSQLStore(db),
		Users:     users.NewSQLStore(db),
		Gateway:   asCaller("00ualice"),
		Logger:    observability.NewLogger(observability.ErrorLevel, &strings.Builder{}),
	})
	return s, mock
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_StorageFailures(t *testing.T) {
	dbErr := errors.New("connection reset by peer")

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		expect  func(mock sqlmock.Sqlmock)
		message string
	}{
		{
			name:   "list",
			method: http.MethodGet,
			path:   "/api/inventory",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM inventory_items WHERE user_id").WillReturnError(dbErr)
			},
			message: "Failed to fetch inventory",
		},
		{
			name:   "create",
			method: http.MethodPost,
			path:   "/api/inventory",
			body:   `{"name":"Saline"}`,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO inventory_items").WillReturnError(dbErr)
			},
			message: "Failed to create item",
		},
		{
			name:   "delete lookup",
			method: http.MethodDelete,
			path:   "/api/inventory/item-1",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM inventory_items WHERE id").WillReturnError(dbErr)
			},
			message: "Failed to delete item",
		},
		{
			name:   "settings",
			method: http.MethodGet,
			path:   "/api/settings",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM user_settings").WillReturnError(dbErr)
			},
			message: "Failed to fetch settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockServer(t)
			tt.expect(mock)

			rec := serve(s, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), dbErr.Error())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestServer_ValidationRunsBeforeStorage(t *testing.T) {
	s, mock := newMockServer(t)

	rec := serve(s, http.MethodPost, "/api/inventory", `{"name":"Saline","quantity":-3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServer_SettingsMissingUser(t *testing.T) {
	s, mock := newMockServer(t)
	mock.ExpectQuery("FROM user_settings").WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	rec := serve(s, http.MethodPut, "/api/settings", `{"theme":"dark"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServer_OwnedItemDeniesMissingAndForeign(t *testing.T) {
	s, mock := newMockServer(t)
	cols := []string{"id", "user_id", "name", "nickname", "chemical_name", "brand", "category", "vessel",
		"strength", "unit_type", "unit_size", "container", "script_name", "quantity", "remaining",
		"doses_left", "min_quantity", "expiration_date", "location", "barcode", "photos", "notes",
		"created_at", "updated_at"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM inventory_items WHERE id").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err := s.ownedItem(context.Background(), "00ualice", "missing")
	assert.ErrorIs(t, err, auth.ErrAuthorizationDenied)

	mock.ExpectQuery("SELECT .* FROM inventory_items WHERE id").WithArgs("bobs").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("bobs", "00ubob", "Gauze", nil, nil, nil, "other", nil,
			nil, nil, nil, nil, nil, 1, nil, nil, 0, nil, "other", nil, "[]", nil, now, now))
	_, err = s.ownedItem(context.Background(), "00ualice", "bobs")
	assert.ErrorIs(t, err, auth.ErrAuthorizationDenied)

	assert.NoError(t, mock.ExpectationsWereMet())
}
