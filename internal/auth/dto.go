package auth

import (
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

// AuthResponse is what login and register return: an opaque token and the user.
type AuthResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}
