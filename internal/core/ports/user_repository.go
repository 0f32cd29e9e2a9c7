package ports

import (
	"context"

	"github.com/petfarm/identity-api/internal/core/domain"
)

// IdentityQuery matches a record by email OR username. Username is ignored
// when empty. ExcludeID skips one record, used when re-checking uniqueness
// on update.
type IdentityQuery struct {
	Email     string
	Username  string
	ExcludeID string
}

// UserUpdate carries the fields to change; nil pointers are left untouched.
type UserUpdate struct {
	Email        *string
	Username     *string
	Role         *domain.Role
	IsActive     *bool
	PasswordHash *string
}

// ListUsersFilter carries paging for user listings.
type ListUsersFilter struct {
	IncludeInactive bool
	Page            int // 1-based
	Limit           int
}

// UserRepository is the persistence port behind the credential store.
// Implementations return domain.ErrNotFound for missing records and
// domain.ErrConflict for unique-key violations.
type UserRepository interface {
	FindByIdentity(ctx context.Context, q IdentityQuery) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)
	// List returns a page of users, newest first, and the total match count.
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}
