package repository

import (
	"context"
	"time"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// CancelRequestRepository owns the cancellation workflow records.
type CancelRequestRepository interface {
	Create(ctx context.Context, req *model.CancelRequest) error
	GetByID(ctx context.Context, id int64) (*model.CancelRequest, error)

	// GetOpenByEnrollment returns the pending request for an enrollment, or
	// domain ErrNotFound when none is open.
	GetOpenByEnrollment(ctx context.Context, enrollmentID int64) (*model.CancelRequest, error)

	// Decide moves a REQUESTED record to a terminal status. Returns false if
	// the request was already decided or withdrawn.
	Decide(ctx context.Context, id int64, to model.CancelRequestStatus, decidedBy string, decidedAt time.Time) (bool, error)

	ListByStatus(ctx context.Context, status model.CancelRequestStatus, limit, offset int) ([]model.CancelRequest, error)
}
