package repository

import (
	"context"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// NotificationRepository stores every inbound gateway signal for audit and
// dedupe, and carries the operator reconciliation queue for flagged
// late-success signals.
type NotificationRepository interface {
	// Save inserts the notification, collapsing replays through the unique
	// dedupe key. created is false when the key already existed.
	Save(ctx context.Context, n *model.GatewayNotification) (created bool, err error)

	MarkProcessed(ctx context.Context, dedupeKey string) error
	MarkFailed(ctx context.Context, dedupeKey string, cause error) error

	// MarkFlagged queues the notification for manual operator review.
	MarkFlagged(ctx context.Context, dedupeKey string, note string) error

	ListFlagged(ctx context.Context, limit, offset int) ([]model.GatewayNotification, error)
}
