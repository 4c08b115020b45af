package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/middleware/auth"
	"github.com/arisu-sports/lesson-server/internal/usecase"
)

type CancelHandler struct {
	refunds *usecase.RefundService
	logger  *zap.Logger
}

func NewCancelHandler(refunds *usecase.RefundService, logger *zap.Logger) *CancelHandler {
	return &CancelHandler{
		refunds: refunds,
		logger:  logger,
	}
}

type cancelRequestBody struct {
	Reason string `json:"reason"`
}

// RequestCancel handles POST /api/v1/enrollments/:id/cancel. Unpaid
// enrollments cancel on the spot; paid ones open an admin-decided request and
// the response carries the request record with its refund preview.
func (h *CancelHandler) RequestCancel(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	enrollmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid enrollment id",
			"code":  "INVALID_ENROLLMENT_ID",
		})
	}

	var body cancelRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}

	req, err := h.refunds.RequestCancellation(c.Request().Context(), enrollmentID, user.UserID, body.Reason)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if req == nil {
		// Unpaid path: canceled immediately, nothing to decide.
		return c.JSON(http.StatusOK, echo.Map{
			"enrollment_id": enrollmentID,
			"status":        "CANCELED_UNPAID",
		})
	}
	return c.JSON(http.StatusAccepted, req)
}

// WithdrawCancel handles POST /api/v1/enrollments/:id/cancel/withdraw
func (h *CancelHandler) WithdrawCancel(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	enrollmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid enrollment id",
			"code":  "INVALID_ENROLLMENT_ID",
		})
	}

	if err := h.refunds.WithdrawCancellation(c.Request().Context(), enrollmentID, user.UserID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"enrollment_id": enrollmentID,
		"status":        "WITHDRAWN",
	})
}

// PreviewRefund handles GET /api/v1/enrollments/:id/refund-preview
func (h *CancelHandler) PreviewRefund(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	enrollmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid enrollment id",
			"code":  "INVALID_ENROLLMENT_ID",
		})
	}

	preview, err := h.refunds.PreviewRefund(c.Request().Context(), enrollmentID, user.UserID, nil)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, preview)
}
