package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db store.DBTX
}

// Ensure UserStore implements store.UserStore interface
var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates a new UserStore over the given handle.
func NewUserStore(db store.DBTX) *UserStore {
	return &UserStore{db: db}
}

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, hashed_password, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.HashedPassword,
		user.Role,
		now,
	).Scan(&user.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrEmailExists, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", MapError(err))
	}

	user.CreatedAt = now
	return nil
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, hashed_password, role, created_at
		FROM users
		WHERE email = $1
	`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: email %s", store.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", MapError(err))
	}
	return user, nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id int) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, hashed_password, role, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", store.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, MapError(err))
	}
	return user, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.HashedPassword,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
