package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorEnvelope{
		Error: APIError{Message: err.Error(), Code: codeFor(err)},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrInvalidArgument),
		errors.Is(err, apperr.ErrInvalidSeed),
		errors.Is(err, apperr.ErrMalformedPayload),
		errors.Is(err, apperr.ErrUnknownTransactionType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, apperr.ErrInvalidSeed):
		return "invalid_seed"
	case errors.Is(err, apperr.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, apperr.ErrUnknownTransactionType):
		return "unknown_transaction_type"
	case errors.Is(err, apperr.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return ""
	}
}
