package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/model"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(model.KindValidation))
	assert.Equal(t, http.StatusUnauthorized, statusFor(model.KindAuthentication))
	assert.Equal(t, http.StatusConflict, statusFor(model.KindReplay))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(model.KindBusinessRule))
	assert.Equal(t, http.StatusInternalServerError, statusFor(model.KindConfiguration))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "wrapped domain error",
			err:    fmt.Errorf("submit: %w", model.ErrSignerNotConfigured),
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":"SignerNotConfigured","message":"signer not configured"}}`,
		},
		{
			name:   "stopped ledger",
			err:    ledger.ErrStopped,
			status: http.StatusServiceUnavailable,
			body:   `{"error":{"code":"Unavailable","message":"ledger is shutting down"}}`,
		},
		{
			name:   "infrastructure failure hides detail",
			err:    errors.New("disk I/O error at /var/lib/hiscore"),
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":"Internal","message":"internal error"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
