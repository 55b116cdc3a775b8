package chat

import (
	"errors"
	"net/http"

	"storefront-bot/internal/catalog"
	chatredis "storefront-bot/internal/chat/redis"
	"storefront-bot/internal/order"
	"storefront-bot/internal/profile"
)

// StatusFor maps an error from Handle to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, order.ErrNotFound), errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, profile.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrBanned), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, order.ErrValidation), errors.Is(err, catalog.ErrValidation), errors.Is(err, ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrPolicyLimitExceeded),
		errors.Is(err, order.ErrNoCityChosen), errors.Is(err, order.ErrCityMismatch):
		return http.StatusConflict
	case errors.Is(err, chatredis.ErrBusy):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
