package ports

import (
	"context"
	"time"

	"github.com/petfarm/identity-api/internal/core/domain"
)

// RegisterInput is the DTO for account registration.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Principal domain.Principal
	Token     string
	ExpiresAt time.Time
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Authenticate(token string) (domain.Principal, error)
	Logout(ctx context.Context, p domain.Principal) error
}
