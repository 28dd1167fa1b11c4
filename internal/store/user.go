package store

import (
	"context"

	"github.com/taskstream/taskstream/internal/domain"
)

// UserStore defines the persistence operations for principals on the
// token service side. Role assignment is out of band: the store reads
// whatever role the row carries.
type UserStore interface {
	// Create persists a new user, assigning its ID.
	// Returns ErrEmailExists if the email is already registered.
	Create(ctx context.Context, user *domain.User) error

	// GetByEmail retrieves a user by email handle.
	// Returns ErrUserNotFound if no user exists with the given email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if no user exists with the given ID.
	GetByID(ctx context.Context, id int) (*domain.User, error)
}
