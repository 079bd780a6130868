package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, Envelope{"exists": true})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"exists":true}`, w.Body.String())
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOKAndCreated(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteOK(w, Envelope{"user": map[string]string{"id": "u1"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":{"id":"u1"}}`, w.Body.String())

	w = httptest.NewRecorder()
	require.NoError(t, WriteCreated(w, Envelope{"audit": map[string]string{"id": "a1"}}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"audit":{"id":"a1"}}`, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter) error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{
			name:       "bad request",
			write:      func(w http.ResponseWriter) error { return WriteBadRequest(w, "Validation failed", nil) },
			wantStatus: http.StatusBadRequest,
			wantError:  "Validation failed",
			wantCode:   "validation",
		},
		{
			name:       "not found default message",
			write:      func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantStatus: http.StatusNotFound,
			wantError:  "Resource not found",
			wantCode:   "not_found",
		},
		{
			name:       "conflict",
			write:      func(w http.ResponseWriter) error { return WriteConflict(w, "id already exists", nil) },
			wantStatus: http.StatusConflict,
			wantError:  "id already exists",
			wantCode:   "conflict",
		},
		{
			name:       "internal",
			write:      func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
			wantCode:   "internal",
		},
		{
			name: "generic unavailable",
			write: func(w http.ResponseWriter) error {
				return WriteError(w, http.StatusServiceUnavailable, "store unreachable", nil)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "store unreachable",
			wantCode:   "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, tt.wantCode, response.Code)
		})
	}
}

func TestWriteBadRequestDetails(t *testing.T) {
	w := httptest.NewRecorder()
	details := map[string]interface{}{"start": "start is required"}

	require.NoError(t, WriteBadRequest(w, "Validation failed", details))

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "start is required", response.Details["start"])
}
