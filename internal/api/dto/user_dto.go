package dto

import (
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a student account.
type RegisterRequest struct {
	Username string `json:"username" validate:"notblank,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=128"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	FullName   string      `json:"full_name"`
	Email      string      `json:"email,omitempty"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department,omitempty"`
}

// LoginResponse carries the access token.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}
