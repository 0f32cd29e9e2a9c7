// Package memory holds an in-process implementation of the user repository
// for tests and local runs. It enforces the same uniqueness rules as the
// MongoDB indexes.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	newID func() string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*domain.User),
		newID: uuid.NewString,
	}
}

func (r *UserRepository) FindByIdentity(ctx context.Context, q ports.IdentityQuery) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.match(q); u != nil {
		return clone(u), nil
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.match(ports.IdentityQuery{Email: user.Email, Username: user.Username}) != nil {
		return nil, domain.ErrConflict
	}

	stored := clone(user)
	stored.ID = r.newID()
	r.users[stored.ID] = stored
	return clone(stored), nil
}

func (r *UserRepository) Update(ctx context.Context, id string, upd ports.UserUpdate) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	q := ports.IdentityQuery{ExcludeID: id}
	if upd.Email != nil {
		q.Email = *upd.Email
	}
	if upd.Username != nil {
		q.Username = *upd.Username
	}
	if r.match(q) != nil {
		return nil, domain.ErrConflict
	}

	next := clone(u)
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.Username != nil {
		next.Username = *upd.Username
	}
	if upd.Role != nil {
		next.Role = *upd.Role
	}
	if upd.IsActive != nil {
		next.IsActive = *upd.IsActive
	}
	if upd.PasswordHash != nil {
		next.PasswordHash = *upd.PasswordHash
	}
	next.UpdatedAt = time.Now().UTC()

	r.users[id] = next
	return clone(next), nil
}

func (r *UserRepository) List(ctx context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if !f.IncludeInactive && !u.IsActive {
			continue
		}
		matched = append(matched, clone(u))
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	total := int64(len(matched))
	limit := f.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	skip := (f.Page - 1) * limit
	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return []*domain.User{}, total, nil
	}
	end := min(skip+limit, len(matched))
	return matched[skip:end], total, nil
}

// match returns the first record other than q.ExcludeID whose email or
// username equals the non-empty query fields. Callers hold r.mu.
func (r *UserRepository) match(q ports.IdentityQuery) *domain.User {
	if q.Email == "" && q.Username == "" {
		return nil
	}
	for id, u := range r.users {
		if id == q.ExcludeID {
			continue
		}
		if q.Email != "" && u.Email == q.Email {
			return u
		}
		if q.Username != "" && u.Username == q.Username {
			return u
		}
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}
