package ports

import (
	"context"

	"github.com/petfarm/identity-api/internal/core/domain"
)

// UpdateUserInput carries a partial profile update. Role and IsActive are
// honoured for admins only.
type UpdateUserInput struct {
	Email    *string
	Username *string
	Role     *domain.Role
	IsActive *bool
}

// ListUsersResult is one page of users.
type ListUsersResult struct {
	Items      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService exposes account management with authorization applied.
type UserService interface {
	Profile(ctx context.Context, p domain.Principal) (*domain.User, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.User, error)
	List(ctx context.Context, p domain.Principal, page, limit int) (*ListUsersResult, error)
	Update(ctx context.Context, p domain.Principal, id string, input UpdateUserInput) (*domain.User, error)
	ChangePassword(ctx context.Context, p domain.Principal, current, next string) error
	Deactivate(ctx context.Context, p domain.Principal, id string) error
}
