package handler

import (
	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

// --- Request → Service input ---

func toUpdateInput(req updateUserRequest) ports.UpdateUserInput {
	in := ports.UpdateUserInput{
		Email:    req.Email,
		Username: req.Username,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}
	return in
}

// --- Service result → HTTP response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{
		User:      toUserResponse(r.User),
		Token:     r.Token,
		TokenType: "Bearer",
		ExpiresAt: r.ExpiresAt.UTC(),
	}
}

func toListResponse(r *ports.ListUsersResult) listUsersResponse {
	items := make([]userResponse, len(r.Items))
	for i, u := range r.Items {
		items[i] = toUserResponse(u)
	}
	return listUsersResponse{
		Data: items,
		Pagination: paginationResponse{
			Total:      r.Total,
			Page:       r.Page,
			Limit:      r.Limit,
			TotalPages: r.TotalPages,
		},
	}
}
