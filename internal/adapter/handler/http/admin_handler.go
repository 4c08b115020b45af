package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/middleware/auth"
	"github.com/arisu-sports/lesson-server/internal/usecase"
)

type AdminHandler struct {
	refunds   *usecase.RefundService
	reconcile *usecase.ReconcileService
	logger    *zap.Logger
}

func NewAdminHandler(refunds *usecase.RefundService, reconcile *usecase.ReconcileService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		refunds:   refunds,
		reconcile: reconcile,
		logger:    logger,
	}
}

type adminDecisionBody struct {
	ManualUsedDays *int `json:"manual_used_days,omitempty"`
}

// ApproveCancelRequest handles POST /api/v1/admin/cancel-requests/:id/approve
func (h *AdminHandler) ApproveCancelRequest(c echo.Context) error {
	admin, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid cancel request id",
			"code":  "INVALID_REQUEST_ID",
		})
	}

	var body adminDecisionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}

	preview, err := h.refunds.ApproveCancellation(c.Request().Context(), requestID, admin.UserID, body.ManualUsedDays)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cancel_request_id": requestID,
		"refund":            preview,
	})
}

// DenyCancelRequest handles POST /api/v1/admin/cancel-requests/:id/deny
func (h *AdminHandler) DenyCancelRequest(c echo.Context) error {
	admin, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid cancel request id",
			"code":  "INVALID_REQUEST_ID",
		})
	}

	if err := h.refunds.DenyCancellation(c.Request().Context(), requestID, admin.UserID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cancel_request_id": requestID,
		"status":            "ADMIN_DENIED",
	})
}

// CancelEnrollment handles POST /api/v1/admin/enrollments/:id/cancel, the
// seat-now-refund-later path for urgent frees.
func (h *AdminHandler) CancelEnrollment(c echo.Context) error {
	admin, err := auth.RequireAuth(c)
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

	if err := h.refunds.AdminCancelPaid(c.Request().Context(), enrollmentID, admin.UserID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"enrollment_id": enrollmentID,
		"status":        "REFUND_PENDING_ADMIN_CANCEL",
	})
}

// ExecuteRefund handles POST /api/v1/admin/enrollments/:id/execute-refund,
// completing an earlier admin cancel.
func (h *AdminHandler) ExecuteRefund(c echo.Context) error {
	admin, err := auth.RequireAuth(c)
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

	var body adminDecisionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}

	preview, err := h.refunds.ExecuteQueuedRefund(c.Request().Context(), enrollmentID, admin.UserID, body.ManualUsedDays)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"enrollment_id": enrollmentID,
		"refund":        preview,
	})
}

// ListCancelRequests handles GET /api/v1/admin/cancel-requests. Defaults to
// the open (REQUESTED) queue; ?status= filters by decision state.
func (h *AdminHandler) ListCancelRequests(c echo.Context) error {
	status := model.CancelRequestStatus(c.QueryParam("status"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	requests, err := h.refunds.ListCancelRequests(c.Request().Context(), status, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cancel_requests": requests,
		"count":           len(requests),
	})
}

// ListReconciliationFlags handles GET /api/v1/admin/reconciliation-flags,
// the queue of late-success signals awaiting a manual decision.
func (h *AdminHandler) ListReconciliationFlags(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	flags, err := h.reconcile.ListFlagged(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"flags": flags,
		"count": len(flags),
	})
}
