package user

import "context"

// Store persists member accounts.
type Store interface {
	// Create inserts a new account. Returns ErrEmailTaken when the email is
	// already registered.
	Create(ctx context.Context, u *User) error

	// ByID loads an account by its ID. Returns ErrNotFound when missing.
	ByID(ctx context.Context, id string) (*User, error)

	// ByEmail loads an account by email. Returns ErrNotFound when missing.
	ByEmail(ctx context.Context, email string) (*User, error)
}
