package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	err := WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		body   string
	}{
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "No token provided") }, http.StatusUnauthorized, `{"error":"No token provided"}`},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "Not authorized") }, http.StatusForbidden, `{"error":"Not authorized"}`},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "Invalid request body") }, http.StatusBadRequest, `{"error":"Invalid request body"}`},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "Template not found") }, http.StatusNotFound, `{"error":"Template not found"}`},
		{"too large", func(w http.ResponseWriter) { WriteRequestTooLarge(w, "Request body too large") }, http.StatusRequestEntityTooLarge, `{"error":"Request body too large"}`},
		{"too many requests", func(w http.ResponseWriter) { WriteTooManyRequests(w, "Too many requests") }, http.StatusTooManyRequests, `{"error":"Too many requests"}`},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "Failed to provision user") }, http.StatusInternalServerError, `{"error":"Failed to provision user"}`},
		{"field", func(w http.ResponseWriter) { WriteFieldError(w, "expirationDate", "invalid date") }, http.StatusBadRequest, `{"error":"invalid date","field":"expirationDate"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteCreated(w, map[string]string{"id": "abc"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "abc", body["id"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
