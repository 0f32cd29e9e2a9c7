package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

// LoginThrottle counts failed logins per key (Redis in production).
type LoginThrottle interface {
	Blocked(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// AuthService implements registration, login and bearer authentication.
type AuthService struct {
	store    *CredentialStore
	tokens   *TokenAuthority
	throttle LoginThrottle
	log      zerolog.Logger
}

// NewAuthService wires the auth use cases. A nil throttle disables attempt counting.
func NewAuthService(store *CredentialStore, tokens *TokenAuthority, throttle LoginThrottle, log zerolog.Logger) *AuthService {
	if throttle == nil {
		throttle = noThrottle{}
	}
	return &AuthService{store: store, tokens: tokens, throttle: throttle, log: log}
}

// Register creates a user-role account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	user, err := s.store.Create(ctx, NewCredential{
		Email:    in.Email,
		Username: in.Username,
		Password: in.Password,
		Role:     domain.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return s.result(user)
}

// Login verifies email and password. Every failure the caller can observe is
// domain.ErrInvalidCredentials, except for an exhausted attempt budget.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	blocked, err := s.throttle.Blocked(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, continuing")
	} else if blocked {
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.store.CheckCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if ferr := s.throttle.Fail(ctx, email); ferr != nil {
				s.log.Warn().Err(ferr).Msg("failed to record login failure")
			}
		}
		return nil, err
	}

	if rerr := s.throttle.Reset(ctx, email); rerr != nil {
		s.log.Warn().Err(rerr).Str("user_id", user.ID).Msg("failed to reset login throttle")
	}
	return s.result(user)
}

// Authenticate turns a bearer token into a principal.
func (s *AuthService) Authenticate(token string) (domain.Principal, error) {
	return s.tokens.Verify(token)
}

// Logout only acknowledges the request. Tokens are stateless and stay
// valid until they expire.
func (s *AuthService) Logout(_ context.Context, p domain.Principal) error {
	s.log.Info().Str("user_id", p.ID).Msg("logout acknowledged")
	return nil
}

func (s *AuthService) result(user *domain.User) (*ports.AuthResult, error) {
	principal := user.Principal()
	token, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{
		User:      user,
		Principal: principal,
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

type noThrottle struct{}

func (noThrottle) Blocked(context.Context, string) (bool, error) { return false, nil }
func (noThrottle) Fail(context.Context, string) error            { return nil }
func (noThrottle) Reset(context.Context, string) error           { return nil }
