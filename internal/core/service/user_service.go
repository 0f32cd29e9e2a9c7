package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

// UserService applies authorization on top of the credential store.
type UserService struct {
	store *CredentialStore
	log   zerolog.Logger
}

func NewUserService(store *CredentialStore, log zerolog.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// Profile returns the caller's own record.
func (s *UserService) Profile(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.store.Get(ctx, p.ID)
}

// Get returns a record the caller owns, or any record for admins.
func (s *UserService) Get(ctx context.Context, p domain.Principal, id string) (*domain.User, error) {
	if !domain.Authorize(p, id, "") {
		return nil, domain.ErrForbidden
	}
	return s.store.Get(ctx, id)
}

// List pages through active users. Admin only.
func (s *UserService) List(ctx context.Context, p domain.Principal, page, limit int) (*ports.ListUsersResult, error) {
	if !domain.Authorize(p, "", domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	return s.store.List(ctx, ports.ListUsersFilter{Page: page, Limit: limit})
}

// Update changes email/username for the owner or an admin. Role and
// is_active are silently dropped unless the caller is an admin.
func (s *UserService) Update(ctx context.Context, p domain.Principal, id string, in ports.UpdateUserInput) (*domain.User, error) {
	if !domain.Authorize(p, id, "") {
		return nil, domain.ErrForbidden
	}

	upd := ports.UpdateUserInput{Email: in.Email, Username: in.Username}
	if p.IsAdmin() {
		upd.Role = in.Role
		upd.IsActive = in.IsActive
	}
	if upd.IsActive != nil && !*upd.IsActive && id == p.ID {
		return nil, domain.ErrSelfAction
	}

	user, err := s.store.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Str("by", p.ID).Msg("user updated")
	return user, nil
}

// ChangePassword rotates the caller's own password.
func (s *UserService) ChangePassword(ctx context.Context, p domain.Principal, current, next string) error {
	return s.store.ChangePassword(ctx, p.ID, current, next)
}

// Deactivate soft-deletes another account. Admin only.
func (s *UserService) Deactivate(ctx context.Context, p domain.Principal, id string) error {
	if !domain.Authorize(p, "", domain.RoleAdmin) {
		return domain.ErrForbidden
	}
	return s.store.Deactivate(ctx, p.ID, id)
}

// EnsureAdmin creates an admin account unless email or username is already
// taken. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	existing, err := s.store.FindByIdentity(ctx, email, username)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			s.log.Warn().Str("user_id", existing.ID).Msg("bootstrap admin identity belongs to a non-admin account")
		}
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	user, err := s.store.Create(ctx, NewCredential{
		Email:    email,
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("bootstrap admin created")
	return true, nil
}
