package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/infrastructure/provider/kispg"
	"github.com/arisu-sports/lesson-server/internal/usecase"
)

// WebhookHandler receives the KISPG server-to-server payment notification.
// KISPG retries until it reads the literal body "OK", so the handler answers
// OK for every outcome that must not be redelivered: applied confirmations,
// replays, and late successes already flagged for an operator. Only transient
// failures (gateway outage mid-verification, DB errors) get a non-OK answer
// to trigger a retry.
type WebhookHandler struct {
	reconcile *usecase.ReconcileService
	logger    *zap.Logger
}

func NewWebhookHandler(reconcile *usecase.ReconcileService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcile: reconcile,
		logger:    logger,
	}
}

// HandleNotify handles POST /api/v1/payments/kispg/notify
func (h *WebhookHandler) HandleNotify(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		h.logger.Warn("Unreadable webhook payload", zap.Error(err))
		return c.String(http.StatusBadRequest, "FAIL")
	}

	cb, err := kispg.ParseCallback(params)
	if err != nil {
		// Malformed payloads will not get better on retry.
		h.logger.Warn("Malformed webhook payload",
			zap.Error(err),
			zap.String("ip", c.RealIP()))
		return c.String(http.StatusOK, "OK")
	}

	h.logger.Info("KISPG webhook received",
		zap.String("moid", cb.Moid),
		zap.String("tid", cb.TID),
		zap.String("result_cd", cb.ResultCd),
		zap.Bool("success", cb.Success),
		zap.String("ip", c.RealIP()))

	if err := h.reconcile.ApplyConfirmation(c.Request().Context(), usecase.ChannelWebhook, cb, c.RealIP()); err != nil {
		switch err.(type) {
		case *domainErrors.EnrollmentExpiredError, *domainErrors.UnresolvedOrderError, *domainErrors.InvalidCallbackError:
			// Deterministic outcomes; a redelivery would hit the same wall.
			return c.String(http.StatusOK, "OK")
		default:
			h.logger.Error("Webhook confirmation failed, requesting redelivery",
				zap.String("moid", cb.Moid),
				zap.Error(err))
			return c.String(http.StatusInternalServerError, "FAIL")
		}
	}

	return c.String(http.StatusOK, "OK")
}
