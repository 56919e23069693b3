package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/auth"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Provider shares its id with the User that registered it.
type Provider struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ServiceType string    `json:"service_type,omitempty"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

type RegisterInput struct {
	FirstName       string    `json:"firstName" validate:"required,min=3,max=30"`
	LastName        string    `json:"lastName" validate:"required,min=3,max=30"`
	Email           string    `json:"email" validate:"required,email"`
	Password        string    `json:"password" validate:"required,password"`
	ConfirmPassword string    `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            auth.Role `json:"role" validate:"required,oneof=user provider"`
	ServiceType     string    `json:"serviceType" validate:"omitempty,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token string
	User  User
	Role  auth.Role
}
