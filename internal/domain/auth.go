package domain

import "time"

// Session identifies the authenticated caller of a single request.
type Session struct {
	UserID    string
	ExpiresAt time.Time
}
