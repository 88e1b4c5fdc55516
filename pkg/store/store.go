package store

import "context"

// Queries is the repository surface shared by every backend. Methods called on
// the Queries handed to a transaction callback run inside that transaction.
type Queries interface {
	FindUserByTelegramID(ctx context.Context, telegramID int64) (User, error)
	FindUserByID(ctx context.Context, id int64) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, params NewUser) (User, error)
	ListUsers(ctx context.Context, page Page) ([]User, error)

	FindRoleByName(ctx context.Context, name string) (Role, error)
	FindRoleByID(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context, page Page) ([]Role, error)

	// AssignRole adds roleID to the user's role set and returns the user.
	// Assigning a role the user already holds changes nothing.
	AssignRole(ctx context.Context, userID, roleID int64) (User, error)
}

// Store is a Queries backed by a transactional database.
type Store interface {
	Queries

	// WithTx runs fn in a read-write transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	// ReadTx runs fn against a consistent snapshot.
	ReadTx(ctx context.Context, fn func(q Queries) error) error

	Ping(ctx context.Context) error
	Close()
}
