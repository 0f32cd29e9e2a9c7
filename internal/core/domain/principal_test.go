package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	user1 := Principal{ID: "1", Email: "a@x.com", Role: RoleUser}
	admin1 := Principal{ID: "1", Email: "root@x.com", Role: RoleAdmin}

	tests := []struct {
		name     string
		p        Principal
		owner    string
		required Role
		want     bool
	}{
		{name: "owner", p: user1, owner: "1", want: true},
		{name: "other user's resource", p: user1, owner: "2", want: false},
		{name: "admin override", p: admin1, owner: "2", want: true},
		{name: "admin-only check as user", p: user1, owner: "", required: RoleAdmin, want: false},
		{name: "admin-only check as admin", p: admin1, owner: "", required: RoleAdmin, want: true},
		{name: "required role matches", p: user1, owner: "2", required: RoleUser, want: true},
		{name: "required role replaces admin override", p: admin1, owner: "2", required: RoleUser, want: false},
		{name: "empty ids never match", p: Principal{Role: RoleUser}, owner: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.p, tt.owner, tt.required))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("guest").Valid())
	assert.False(t, Role("").Valid())
}
