// errors/user_errors.go
package errors

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidUserData = errors.New("invalid user data")

	ErrTeamNotFound    = errors.New("team not found")
	ErrInvalidTeamData = errors.New("invalid team data")

	ErrOrganizationNotFound = errors.New("organization not found")

	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
)
