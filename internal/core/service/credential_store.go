package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// bcrypt ignores everything past 72 bytes; reject instead of truncating.
	maxPasswordBytes = 72
)

// NewCredential is the input for creating a credential record.
type NewCredential struct {
	Email    string
	Username string
	Password string
	Role     domain.Role // empty means domain.RoleUser
}

// CredentialStore owns credential records: uniqueness, password hashing and
// soft deletion. The existence check before each write is not atomic with
// the write; the repository's unique indexes turn a lost race into
// domain.ErrConflict.
type CredentialStore struct {
	repo   ports.UserRepository
	hasher PasswordHasher
	log    zerolog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialStore(repo ports.UserRepository, hasher PasswordHasher, log zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		repo:   repo,
		hasher: hasher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FindByIdentity looks a record up by email OR username. It returns
// domain.ErrNotFound when neither matches.
func (s *CredentialStore) FindByIdentity(ctx context.Context, email, username string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" && username == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByIdentity(ctx, ports.IdentityQuery{Email: email, Username: username})
}

// Get returns the record with the given id.
func (s *CredentialStore) Get(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// Create hashes the password and persists a new active record.
func (s *CredentialStore) Create(ctx context.Context, in NewCredential) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	if err := s.ensureUnique(ctx, email, in.Username, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("credential created")
	return created, nil
}

// VerifyPassword reports whether password matches the record's hash. It
// never fails: mismatches, missing records and comparison errors all
// yield false.
func (s *CredentialStore) VerifyPassword(ctx context.Context, user *domain.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	ok, err := s.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password comparison failed")
		return false
	}
	return ok
}

// CheckCredentials resolves an active record by email and verifies its
// password. Unknown emails, inactive accounts and wrong passwords all return
// domain.ErrInvalidCredentials, and each path pays for one hash comparison.
func (s *CredentialStore) CheckCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.FindByIdentity(ctx, email, "")
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive {
		s.burnComparison(ctx, password)
		return nil, domain.ErrInvalidCredentials
	}
	if !s.VerifyPassword(ctx, user, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile applies a partial update after re-checking uniqueness
// against every other record.
func (s *CredentialStore) UpdateProfile(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var upd ports.UserUpdate
	var checkEmail, checkUsername string

	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidInput)
		}
		if email != current.Email {
			checkEmail = email
		}
		upd.Email = &email
	}
	if in.Username != nil {
		username := *in.Username
		if username != current.Username {
			checkUsername = username
		}
		upd.Username = &username
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *in.Role)
		}
		upd.Role = in.Role
	}
	upd.IsActive = in.IsActive

	if err := s.ensureUnique(ctx, checkEmail, checkUsername, id); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, upd)
}

// ChangePassword replaces the stored hash once the current password checks out.
func (s *CredentialStore) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(ctx, user, current) {
		return domain.ErrInvalidCredentials
	}
	if err := checkPassword(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, id, ports.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}

	s.log.Info().Str("user_id", id).Msg("password changed")
	return nil
}

// Deactivate soft-deletes targetID. Deactivating an inactive record is a
// no-op; callers may never deactivate themselves.
func (s *CredentialStore) Deactivate(ctx context.Context, callerID, targetID string) error {
	if callerID != "" && callerID == targetID {
		return domain.ErrSelfAction
	}

	user, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}

	inactive := false
	if _, err := s.repo.Update(ctx, targetID, ports.UserUpdate{IsActive: &inactive}); err != nil {
		return err
	}

	s.log.Info().Str("user_id", targetID).Str("by", callerID).Msg("credential deactivated")
	return nil
}

// List returns a page of records, newest first. Inactive records are
// excluded unless the filter asks for them.
func (s *CredentialStore) List(ctx context.Context, filter ports.ListUsersFilter) (*ports.ListUsersResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ports.ListUsersResult{
		Items:      users,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

// ensureUnique fails with domain.ErrConflict when another record already
// holds email or username. Empty values are not checked.
func (s *CredentialStore) ensureUnique(ctx context.Context, email, username, excludeID string) error {
	if email == "" && username == "" {
		return nil
	}
	_, err := s.repo.FindByIdentity(ctx, ports.IdentityQuery{
		Email:     email,
		Username:  username,
		ExcludeID: excludeID,
	})
	switch {
	case err == nil:
		return domain.ErrConflict
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("uniqueness check: %w", err)
	}
}

// burnComparison runs one comparison against a throwaway hash so a login for
// an unknown email costs about as much as a wrong password.
func (s *CredentialStore) burnComparison(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), "identity-api/timing-equaliser")
		if err != nil {
			s.log.Warn().Err(err).Msg("could not prepare dummy hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Compare(ctx, s.dummyHash, password)
	}
}

func checkPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password longer than %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}
