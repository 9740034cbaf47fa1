package api

import (
	"github.com/google/uuid"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication
// endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user.
	UserID uuid.UUID `json:"user_id"`

	// Token is the JWT bearer token used for API authorization.
	Token string `json:"token"`
}
