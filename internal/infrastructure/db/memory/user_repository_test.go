package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

func seed(t *testing.T, r *UserRepository, email, username string, created time.Time, active bool) *domain.User {
	t.Helper()
	u, err := r.Create(context.Background(), &domain.User{
		Email:     email,
		Username:  username,
		Role:      domain.RoleUser,
		IsActive:  active,
		CreatedAt: created,
	})
	require.NoError(t, err)
	return u
}

func TestUserRepository_CreateAssignsIDAndRejectsDuplicates(t *testing.T) {
	r := NewUserRepository()
	now := time.Now().UTC()

	u := seed(t, r, "a@x.com", "u1", now, true)
	assert.NotEmpty(t, u.ID)

	_, err := r.Create(context.Background(), &domain.User{Email: "a@x.com", Username: "u2"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = r.Create(context.Background(), &domain.User{Email: "b@x.com", Username: "u1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// two records without usernames do not collide
	seed(t, r, "c@x.com", "", now, true)
	seed(t, r, "d@x.com", "", now, true)
}

func TestUserRepository_FindByIdentity(t *testing.T) {
	r := NewUserRepository()
	u := seed(t, r, "a@x.com", "alice", time.Now(), true)

	got, err := r.FindByIdentity(context.Background(), ports.IdentityQuery{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = r.FindByIdentity(context.Background(), ports.IdentityQuery{Email: "nobody@x.com", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.FindByIdentity(context.Background(), ports.IdentityQuery{Email: "a@x.com", ExcludeID: u.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.FindByIdentity(context.Background(), ports.IdentityQuery{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	r := NewUserRepository()
	u := seed(t, r, "a@x.com", "", time.Now(), true)

	u.Email = "mutated@x.com"
	got, err := r.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestUserRepository_Update(t *testing.T) {
	r := NewUserRepository()
	a := seed(t, r, "a@x.com", "alice", time.Now(), true)
	seed(t, r, "b@x.com", "bob", time.Now(), true)

	taken := "b@x.com"
	_, err := r.Update(context.Background(), a.ID, ports.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)

	same := "a@x.com"
	admin := domain.RoleAdmin
	inactive := false
	got, err := r.Update(context.Background(), a.ID, ports.UserUpdate{Email: &same, Role: &admin, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.False(t, got.IsActive)
	assert.False(t, got.UpdatedAt.IsZero())

	_, err = r.Update(context.Background(), "missing", ports.UserUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_ListNewestFirstAndSkipsInactive(t *testing.T) {
	r := NewUserRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	oldest := seed(t, r, "1@x.com", "", base, true)
	seed(t, r, "2@x.com", "", base.Add(time.Hour), false)
	newest := seed(t, r, "3@x.com", "", base.Add(2*time.Hour), true)

	users, total, err := r.List(context.Background(), ports.ListUsersFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 2)
	assert.Equal(t, newest.ID, users[0].ID)
	assert.Equal(t, oldest.ID, users[1].ID)

	users, total, err = r.List(context.Background(), ports.ListUsersFilter{IncludeInactive: true, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, oldest.ID, users[0].ID)

	users, _, err = r.List(context.Background(), ports.ListUsersFilter{Page: 5, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepository_HonoursCancelledContext(t *testing.T) {
	r := NewUserRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.FindByID(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
