// audit/service.go
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/cardlyhq/cardly/logging"
)

// Service records audit events best-effort. Recording never fails the
// caller: invalid events are dropped with a local warning and
// repository failures are swallowed after logging.
type Service interface {
	Record(ctx context.Context, event Event)
	QueryEvents(ctx context.Context, from, to time.Time, userID, resourceID string, limit, offset int) ([]Event, error)
}

type service struct {
	repo Repository
}

// NewService creates a Service on top of a Repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, event Event) {
	if !event.Valid() {
		logger.Warn("Dropping invalid audit event",
			zap.String("userID", event.UserID),
			zap.String("action", event.Action))
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	if err := s.repo.Append(ctx, event); err != nil {
		logger.Error("Failed to persist audit event",
			zap.Error(err),
			zap.String("userID", event.UserID),
			zap.String("action", event.Action))
	}
}

func (s *service) QueryEvents(ctx context.Context, from, to time.Time, userID, resourceID string, limit, offset int) ([]Event, error) {
	return s.repo.Query(ctx, from, to, userID, resourceID, limit, offset)
}
