package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/infrastructure/provider/kispg"
	"github.com/arisu-sports/lesson-server/internal/middleware/auth"
	"github.com/arisu-sports/lesson-server/internal/usecase"
	pkgerrors "github.com/arisu-sports/lesson-server/pkg/errors"
)

type PaymentHandler struct {
	payments  *usecase.PaymentService
	reconcile *usecase.ReconcileService
	clientURL string
	logger    *zap.Logger
}

func NewPaymentHandler(payments *usecase.PaymentService, reconcile *usecase.ReconcileService, clientURL string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		reconcile: reconcile,
		clientURL: clientURL,
		logger:    logger,
	}
}

// GetPaymentParams handles GET /api/v1/enrollments/:id/payment-params.
// Reloading the payment page re-issues identical parameters for the same
// enrollment, so an interrupted attempt can be retried until the deadline.
func (h *PaymentHandler) GetPaymentParams(c echo.Context) error {
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

	buyer := kispg.BuyerInfo{
		Name:  c.QueryParam("buyer_name"),
		Tel:   c.QueryParam("buyer_tel"),
		Email: user.Email,
	}

	params, err := h.payments.PaymentParams(c.Request().Context(), enrollmentID, user.UserID, buyer)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, params)
}

// HandleReturn handles POST /api/v1/payments/kispg/return, the browser
// redirect back from the payment window. The redirect is only a hint; the
// confirmation still goes through gateway verification before anything
// settles. The response redirects the browser to the client result page.
func (h *PaymentHandler) HandleReturn(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid form payload",
			"code":  "INVALID_BODY",
		})
	}

	cb, err := kispg.ParseCallback(params)
	if err != nil {
		h.logger.Warn("Malformed return callback", zap.Error(err))
		return c.Redirect(http.StatusFound, h.clientURL+"/payment/result?outcome=error")
	}

	outcome := "success"
	if err := h.reconcile.ApplyConfirmation(c.Request().Context(), usecase.ChannelReturn, cb, c.RealIP()); err != nil {
		pkgerrors.LogWarn(h.logger, err, "Return-channel confirmation not applied",
			zap.String("moid", cb.Moid))
		outcome = "pending"
	}
	if !cb.Success {
		outcome = "failed"
	}

	return c.Redirect(http.StatusFound, h.clientURL+"/payment/result?outcome="+outcome)
}
