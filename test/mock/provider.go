// test/mock/provider.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cardlyhq/cardly/model"
)

// MockDataProvider is a mock implementation of dao.DataProvider
type MockDataProvider struct {
	mock.Mock
}

func (m *MockDataProvider) GetUserRecord(ctx context.Context, userID string) (*model.UserRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(*model.UserRecord), args.Error(1)
}

func (m *MockDataProvider) TransactionalUpdate(ctx context.Context, writes []model.FieldWrite) error {
	args := m.Called(ctx, writes)
	return args.Error(0)
}
