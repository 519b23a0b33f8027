package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // argon2id
	Name         string     `json:"name"`
	Roles        []Role     `json:"roles"`
	SlackUserID  string     `json:"slack_user_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Actor returns the authorization snapshot of the user.
func (u *User) Actor() Actor {
	return NewActor(u.ID, u.Roles, u.DepartmentID)
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
