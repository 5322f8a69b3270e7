package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/paymint-app/paymint-backend/pkg/db/models"
)

// UserDTO is the public shape of a user.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// FromModel converts a persisted user into its public shape.
func FromModel(user *models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// SignupInput carries a new-user registration.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput carries a credential check.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult pairs a freshly minted access token with the authenticated user.
type AuthResult struct {
	AccessToken string
	User        UserDTO
}
