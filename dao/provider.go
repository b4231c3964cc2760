// dao/provider.go
package dao

import (
	"context"

	"github.com/cardlyhq/cardly/model"
)

// DataProvider is the document-store collaborator the authorization
// subsystem reads from. Implementations must return
// errors.ErrUserNotFound when the record does not exist, and must apply
// a TransactionalUpdate atomically; the subsystem never composes
// atomicity from independent writes.
type DataProvider interface {
	GetUserRecord(ctx context.Context, userID string) (*model.UserRecord, error)
	TransactionalUpdate(ctx context.Context, writes []model.FieldWrite) error
}
