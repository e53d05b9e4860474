package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// UserRepository implements repository.UserRepository in memory.
type UserRepository struct {
	a *access
}

// Create stores a user; emails are unique.
func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	return r.a.do(func(d *dataset) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return apperrors.Conflict(fmt.Sprintf("user with email %s already exists", u.Email))
			}
		}
		d.users[u.ID] = *u
		return nil
	})
}

// GetByEmail returns the user or apperrors.ErrNotFound.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.a.do(func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	return out, err
}

// GetByID returns the user or apperrors.ErrNotFound.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.a.do(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	return r.a.do(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		u.PasswordHash = hash
		u.UpdatedAt = at
		d.users[id] = u
		return nil
	})
}
