package models

import "time"

// Principal is the authenticated identity attached to a session.
type Principal struct {
	UserID      int64  `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"name"`
}

// Session is a server-side login record.
type Session struct {
	ID        string
	Principal Principal
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
