package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
	"go-ecoforum/pkg/apierror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("comment 4: %w", model.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"finalized", model.ErrAlreadyFinalized, http.StatusConflict, "ALREADY_FINALIZED"},
		{"conflict", model.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"unknown table", model.ErrUnknownTable, http.StatusNotFound, "UNKNOWN_TABLE"},
		{"invalid parent", model.ErrInvalidParent, http.StatusUnprocessableEntity, "INVALID_PARENT"},
		{"invalid target", model.ErrInvalidTarget, http.StatusUnprocessableEntity, "INVALID_TARGET"},
		{"invalid input", model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
		{"unauthorized", model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", model.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"api error", apierror.New("TEAPOT", "short and stout", "", http.StatusTeapot), http.StatusTeapot, "TEAPOT"},
		{"unclassified", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body model.APIResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestPageQuery(t *testing.T) {
	limits := model.PageLimits{Default: 25, Max: 100}

	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=1000", nil)
	assert.Equal(t, model.PageQuery{Page: 3, Limit: 100}, pageQuery(req, limits))

	req = httptest.NewRequest(http.MethodGet, "/?page=x", nil)
	assert.Equal(t, model.PageQuery{Page: 1, Limit: 25}, pageQuery(req, limits))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
