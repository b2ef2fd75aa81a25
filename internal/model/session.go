package model

import "time"

type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ExpirationDate time.Time `json:"expiration_date"`
	CreatedAt      time.Time `json:"created_at"`

	// User is populated only by lookups that load the owning user.
	User *User `json:"user,omitempty"`
}

// Expired reports whether the session is past its expiration date at now.
// A session is still valid at the exact expiration instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpirationDate)
}
