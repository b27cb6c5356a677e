package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"smartfile/internal/license"
	"smartfile/internal/services"
	"smartfile/internal/session"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantText   string
	}{
		{"invalid format", license.ErrInvalidFormat, http.StatusBadRequest, "Invalid license key format. Expected: PREM-XXXX-XXXX-XXXX"},
		{"not found", license.ErrNotFound, http.StatusNotFound, "License not found"},
		{"expired", license.ErrExpired, http.StatusForbidden, "License expired"},
		{"device limit", license.ErrDeviceLimit, http.StatusForbidden, "Too many devices linked"},
		{"bad session", session.ErrSessionNotFound, http.StatusUnauthorized, "Invalid or expired session"},
		{"rate limited", services.ErrRateLimited, http.StatusTooManyRequests, "Limit reached. Upgrade to Premium for unlimited use."},
		{"unexpected", errors.New("redis: connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Map(tt.err)
			assert.Equal(t, tt.wantStatus, resp.HTTPStatusCode)
			assert.Equal(t, tt.wantText, resp.ErrorText)
			assert.False(t, resp.Success)
		})
	}
}

func TestMap_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("validate key: %w", license.ErrExpired)

	resp := Map(wrapped)
	assert.Equal(t, http.StatusForbidden, resp.HTTPStatusCode)
}

func TestMap_NeverLeaksInternalDetail(t *testing.T) {
	resp := Map(errors.New("dial tcp 10.1.2.3:6379: i/o timeout"))

	assert.NotContains(t, resp.ErrorText, "10.1.2.3")
	assert.Equal(t, "An unexpected error occurred", resp.ErrorText)
}
