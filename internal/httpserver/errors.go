package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/logging"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
)

// writeError maps service errors to a status code and {"error": ...} body.
func (h *handlers) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid input", "fields": verr.Fields})
		return
	}

	status := statusFor(err)
	msg := err.Error()
	var se *backend.StatusError
	if errors.As(err, &se) && se.Message != "" && status < 500 {
		msg = se.Message
	}
	if status >= 500 {
		logging.FromContext(c, h.logger).Error("request failed", zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, cartsvc.ErrVariantRequired),
		errors.Is(err, cartsvc.ErrUnknownVariant):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, cartsvc.ErrOutOfStock),
		errors.Is(err, cartsvc.ErrExceedsStock):
		return http.StatusConflict
	case errors.Is(err, checkoutsvc.ErrInvalidPrice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	if status := backend.StatusOf(err); status != 0 {
		if status >= 400 && status < 500 {
			return status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
