package entities

import (
	"errors"
	"time"
)

// SessionStatus represents the status of a voter session
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusExpired    SessionStatus = "expired"
	SessionStatusTerminated SessionStatus = "terminated"
)

const sessionTTL = 8 * time.Hour

// VoterSession represents an authenticated voter's session. The engine only
// reads and clears it through the storage collaborator; the schema belongs
// to the storage layer.
type VoterSession struct {
	ID           string        `json:"id" bson:"_id,omitempty"`
	VoterID      string        `json:"voter_id" bson:"voter_id"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	LastActiveAt time.Time     `json:"last_active_at" bson:"last_active_at"`
	ExpiresAt    time.Time     `json:"expires_at" bson:"expires_at"`
	Status       SessionStatus `json:"status" bson:"status"`
	Context      PageContext   `json:"context" bson:"context"`
}

// NewVoterSession creates an active session for a voter, starting on the
// login page.
func NewVoterSession(voterID string) *VoterSession {
	now := time.Now()
	return &VoterSession{
		VoterID:      voterID,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(sessionTTL),
		Status:       SessionStatusActive,
		Context:      ContextLogin,
	}
}

// SetContext records the page the voter navigated to. Called once per page
// load by the hosting client.
func (s *VoterSession) SetContext(ctx PageContext) {
	s.Context = ctx
	s.UpdateLastActive()
}

// UpdateLastActive updates the last active timestamp and extends expiration.
func (s *VoterSession) UpdateLastActive() {
	s.LastActiveAt = time.Now()
	s.ExpiresAt = s.LastActiveAt.Add(sessionTTL)
}

// IsExpired checks if the session has expired.
func (s *VoterSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt) || s.Status != SessionStatusActive
}

// Terminate marks the session as terminated.
func (s *VoterSession) Terminate() {
	s.Status = SessionStatusTerminated
	s.LastActiveAt = time.Now()
}

// Expire marks the session as expired.
func (s *VoterSession) Expire() {
	s.Status = SessionStatusExpired
}

// Validate validates the session data.
func (s *VoterSession) Validate() error {
	if s.VoterID == "" {
		return errors.New("voter_id is required")
	}
	if s.Status != SessionStatusActive && s.Status != SessionStatusExpired && s.Status != SessionStatusTerminated {
		return errors.New("invalid session status")
	}
	if s.Context != "" && !s.Context.Valid() {
		return errors.New("invalid page context")
	}
	return nil
}
