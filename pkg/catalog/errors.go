package catalog

import "errors"

var (
	// ErrFetchActions is returned when the action catalog cannot be fetched.
	ErrFetchActions = errors.New("failed to fetch actions")

	// ErrActionNotFound is returned when an action identifier matches nothing.
	ErrActionNotFound = errors.New("action not found")

	// ErrInvalidPermissions is returned for an unknown permission level.
	ErrInvalidPermissions = errors.New("invalid permissions: must be one of read, write, admin")

	// ErrInvalidIdentityType is returned for an unknown identity type.
	ErrInvalidIdentityType = errors.New("invalid identity type: must be one of user, team, organization, project")
)
