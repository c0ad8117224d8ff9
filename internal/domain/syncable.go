package domain

import "time"

// Syncable carries the identity and timestamps shared by every stored entity.
type Syncable struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp. Call it whenever the entity changes.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now. Call it on creation.
func (s *Syncable) InitTimestamps() {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Owned is implemented by every entity that belongs to exactly one user.
type Owned interface {
	OwnerID() string
}
