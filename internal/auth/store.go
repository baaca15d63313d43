package auth

import "context"

// Store describes the persistence operations the auth service requires. The
// relational mechanics live behind this interface; the pg package implements
// it. Implementations must translate store-level uniqueness violations on
// insert into ErrUsernameConflict / ErrEmailConflict so a lost pre-check race
// still surfaces as the friendly domain error.
type Store interface {
	// FindUsers returns the users matching the filter, role links loaded.
	FindUsers(ctx context.Context, filter UserFilter) ([]User, error)

	// InsertUser persists a new user and returns the stored record.
	InsertUser(ctx context.Context, u User) (User, error)

	// MarkEmailVerified flips the verified flag and returns the updated user.
	MarkEmailVerified(ctx context.Context, userID int64) (User, error)

	// FindRoles returns roles by name; an empty name list returns all roles.
	FindRoles(ctx context.Context, names []string) ([]Role, error)

	// FindPermissionsByRoleIDs returns the distinct permissions reachable
	// from the given roles via the role-permission link table.
	FindPermissionsByRoleIDs(ctx context.Context, roleIDs []int64) ([]Permission, error)
}
