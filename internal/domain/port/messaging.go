package port

import (
	"context"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg entity.RunStatusMessage) error
}

// DLQPublisher forwards an unprocessable request body together with the reason.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, body []byte, reason string) error
}

// FailureNotifier tells the requester that a run failed. Delivery is best
// effort; callers ignore the error.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, runID string, videoKey string, errorMsg string) error
}
