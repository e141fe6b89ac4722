package domain

import "time"

// User is an account that can own issues.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the public projection of a user embedded in issues.
type UserSummary struct {
	ID    string
	Email string
	Name  string
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name}
}
