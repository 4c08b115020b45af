package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/pkg/messaging"
)

// StatusEventChannel is the Redis channel enrollment status changes are
// published on.
const StatusEventChannel = "enrollment.status"

// StatusEvent notifies listeners (the opener window of the payment popup,
// dashboards) that an enrollment changed status. It is a best-effort
// optimization: consumers must fall back to polling the status endpoint,
// which stays the source of truth.
type StatusEvent struct {
	EnrollmentID int64           `json:"enrollment_id"`
	Status       model.PayStatus `json:"status"`
	At           time.Time       `json:"at"`
}

// publishStatus publishes a status event, logging and swallowing failures.
func publishStatus(ctx context.Context, client messaging.RedisClient, logger *zap.Logger, enrollmentID int64, status model.PayStatus) {
	if client == nil {
		return
	}

	event := StatusEvent{
		EnrollmentID: enrollmentID,
		Status:       status,
		At:           time.Now(),
	}
	if err := client.Publish(ctx, StatusEventChannel, event); err != nil {
		logger.Warn("Failed to publish status event",
			zap.Int64("enrollment_id", enrollmentID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
