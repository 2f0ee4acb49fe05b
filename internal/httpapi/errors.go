package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/model"
)

// ErrorBody is the ledger API error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one rejection.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]uint64 `json:"details,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAuthentication:
		return http.StatusUnauthorized
	case model.KindReplay:
		return http.StatusConflict
	case model.KindBusinessRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Only *model.Error messages reach the client.
func writeError(c *gin.Context, err error) {
	if e, ok := model.AsError(err); ok {
		detail := ErrorDetail{Code: string(e.Code), Message: e.Message}
		switch e.Code {
		case model.CodeScoreNotHigher:
			detail.Details = map[string]uint64{"current": e.Current, "submitted": e.Submitted}
		case model.CodeInsufficientPayment:
			detail.Details = map[string]uint64{"price": e.Current, "paid": e.Submitted}
		}
		c.JSON(statusFor(e.Kind), ErrorBody{Error: detail})
		return
	}

	_ = c.Error(err)
	switch {
	case errors.Is(err, ledger.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, ErrorBody{Error: ErrorDetail{Code: "Unavailable", Message: "ledger is shutting down"}})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, ErrorBody{Error: ErrorDetail{Code: "Unavailable", Message: "request cancelled"}})
	default:
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{Code: "Internal", Message: "internal error"}})
	}
}
