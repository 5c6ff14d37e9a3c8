package entity

import (
	"time"
)

// User is the aggregate root for accounts.
// Password holds a bcrypt hash, never the plain value.
type User struct {
	ID                       int64
	Name                     string
	Email                    string
	Password                 string
	Role                     Role
	IsVerified               bool
	VerificationToken        *string
	ResetPasswordToken       *string
	ResetPasswordTokenExpiry *time.Time
	LastVisited              *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// PublicUser is the projection of a user that is safe to return to clients.
type PublicUser struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	IsVerified  bool       `json:"isVerified"`
	LastVisited *time.Time `json:"lastVisited"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		LastVisited: u.LastVisited,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
