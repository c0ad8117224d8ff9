package domain

import "time"

// Role represents the user's permission level.
type Role string

const (
	// RoleUser is a regular learner.
	RoleUser Role = "user"
	// RoleAdmin can list and block users.
	RoleAdmin Role = "admin"
)

// User represents an account. Password-less accounts are created by federated login.
type User struct {
	Syncable
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"` // filtered from API responses
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	GoogleID     string    `json:"google_id,omitempty"`
	FirebaseUID  string    `json:"firebase_uid,omitempty"`
	Role         Role      `json:"role"`
	IsBlocked    bool      `json:"is_blocked"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// IsAdmin reports whether the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether the account can use password login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Session is an authenticated device holding one rotating refresh token.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now().UTC()
}

// IsExpired reports whether the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
