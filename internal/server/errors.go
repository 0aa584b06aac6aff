package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	billingdomain "github.com/tinylojas/conversa/internal/billing/domain"
	"github.com/tinylojas/conversa/internal/brain"
	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/limits"
	"github.com/tinylojas/conversa/internal/tier"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

// ErrorHandlingMiddleware maps domain sentinels attached via AbortWithError
// to transport responses. Handlers that already wrote a body win.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var limited *limits.LimitExceededError
	if errors.As(err, &limited) {
		return http.StatusPaymentRequired, errorPayload{
			Type:    "limit_exceeded",
			Message: limited.Error(),
			Detail:  limited,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, brain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tier.ErrInvalidTier),
		errors.Is(err, billingdomain.ErrInvalidUpgrade),
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrInvalidChannel),
		errors.Is(err, identitydomain.ErrInvalidChannelID),
		errors.Is(err, usagedomain.ErrInvalidIdentity),
		errors.Is(err, usagedomain.ErrInvalidIncrement),
		errors.Is(err, usagedomain.ErrInvalidMonths),
		errors.Is(err, convdomain.ErrInvalidIdentity):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, identitydomain.ErrIdentityNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
