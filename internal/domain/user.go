package domain

import (
	"strings"
	"time"
)

// Role tags assigned to principals. Role assignment happens out of band;
// the authorization checks only read them.
const (
	RoleUser    = "USER"
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
)

// ElevatedRoles are the role tags that bypass the author-only restriction
// on deadline changes.
var ElevatedRoles = []string{RoleAdmin, RoleManager}

// User is a principal known to the token service. The email handle is the
// stable login identifier; the integer ID is what domain events and task
// rows reference.
type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser creates a user with the default USER role. The caller is
// responsible for hashing the password before storage.
func NewUser(email, firstName, lastName string) (*User, error) {
	user := &User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      RoleUser,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks the user's invariants.
func (u *User) Validate() error {
	at := strings.IndexByte(u.Email, '@')
	if at <= 0 || at == len(u.Email)-1 {
		return ErrInvalidEmail
	}
	if !strings.Contains(u.Email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

// HasElevatedRole reports whether any of the given role tags grants the
// elevated permission set.
func HasElevatedRole(roles []string) bool {
	for _, role := range roles {
		for _, elevated := range ElevatedRoles {
			if role == elevated {
				return true
			}
		}
	}
	return false
}
