package domain

import "time"

// User is an account that can sign in to the helpdesk.
type User struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	Department   string
	CreatedAt    time.Time
}

// Identity projects the user onto the caller identity used by services.
func (u *User) Identity() Identity {
	return Identity{
		UserID:      u.ID,
		Role:        u.Role,
		Department:  u.Department,
		DisplayName: u.FullName,
	}
}
