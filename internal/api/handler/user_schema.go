package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type registerRequest struct {
	Email    string `json:"email"              validate:"required,email"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=32"`
	Password string `json:"password"           validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6,max=72,nefield=CurrentPassword"`
}

// updateUserRequest is a partial update; omitted fields are left unchanged.
// role and is_active are ignored unless the caller is an admin.
type updateUserRequest struct {
	Email    *string `json:"email,omitempty"     validate:"omitempty,email"`
	Username *string `json:"username,omitempty"  validate:"omitempty,min=3,max=32"`
	Role     *string `json:"role,omitempty"      validate:"omitempty,oneof=user admin"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Response-only types owned by the transport layer.

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listUsersResponse struct {
	Data       []userResponse     `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}
