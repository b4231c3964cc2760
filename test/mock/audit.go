// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cardlyhq/cardly/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func (m *MockAuditService) QueryEvents(ctx context.Context, from, to time.Time, userID, resourceID string, limit, offset int) ([]audit.Event, error) {
	args := m.Called(ctx, from, to, userID, resourceID, limit, offset)
	return args.Get(0).([]audit.Event), args.Error(1)
}

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) Query(ctx context.Context, from, to time.Time, userID, resourceID string, limit, offset int) ([]audit.Event, error) {
	args := m.Called(ctx, from, to, userID, resourceID, limit, offset)
	return args.Get(0).([]audit.Event), args.Error(1)
}
