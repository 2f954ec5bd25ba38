// Package model defines the data structures used throughout the application.
package model

import "time"

// Roles a user can hold. New accounts are RoleUser.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// PasswordHash is tagged json:"-" so a User can be written to a response
// without ever leaking the hash. GitHubID is nil for accounts created through
// /api/auth/register and set for accounts created by GitHub sign-in.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Ref returns the populated form of the user embedded in posts and comments.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserRef is a user reference populated with username and email only.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
