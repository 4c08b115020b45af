package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/pkg/errors"
)

// respondError maps domain errors onto the wire. Unrecognized errors are
// logged and become a plain 500 so internals never leak to the client.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var (
		capacityErr   *domainErrors.CapacityExceededError
		lockerErr     *domainErrors.LockerUnavailableError
		enrollableErr *domainErrors.LessonNotEnrollableError
		duplicateErr  *domainErrors.DuplicateEnrollmentError
		transitionErr *domainErrors.InvalidTransitionError
		expiredErr    *domainErrors.EnrollmentExpiredError
		orderErr      *domainErrors.UnresolvedOrderError
		callbackErr   *domainErrors.InvalidCallbackError
		verifyErr     *domainErrors.GatewayVerificationError
		appErr        *errors.AppError
	)

	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Resource not found",
			"code":  "NOT_FOUND",
		})
	case errors.As(err, &capacityErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": capacityErr.Error(),
			"code":  "CAPACITY_EXCEEDED",
		})
	case errors.As(err, &lockerErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": lockerErr.Error(),
			"code":  "LOCKER_UNAVAILABLE",
		})
	case errors.As(err, &duplicateErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": duplicateErr.Error(),
			"code":  "DUPLICATE_ENROLLMENT",
		})
	case errors.As(err, &enrollableErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": enrollableErr.Error(),
			"code":  "LESSON_NOT_ENROLLABLE",
		})
	case errors.As(err, &transitionErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": transitionErr.Error(),
			"code":  "INVALID_STATE",
		})
	case errors.As(err, &expiredErr):
		return c.JSON(http.StatusGone, echo.Map{
			"error": expiredErr.Error(),
			"code":  "PAYMENT_WINDOW_EXPIRED",
		})
	case errors.As(err, &orderErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": orderErr.Error(),
			"code":  "UNRESOLVED_ORDER",
		})
	case errors.As(err, &callbackErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": callbackErr.Error(),
			"code":  "INVALID_CALLBACK",
		})
	case errors.As(err, &verifyErr):
		logger.Error("Gateway verification failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "Payment gateway verification failed",
			"code":  "GATEWAY_VERIFICATION_FAILED",
		})
	case errors.As(err, &appErr):
		return c.JSON(errors.GetHTTPStatus(appErr.Code()), echo.Map{
			"error": appErr.Error(),
			"code":  appErr.Code(),
		})
	default:
		errors.LogError(logger, err, "Unhandled error")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
	}
}
