package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

// SessionRepository is an in-memory implementation of
// repositories.SessionRepository. One session per voter.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.VoterSession // voterID -> session
}

// NewSessionRepository creates an empty session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.VoterSession),
	}
}

// Create implements repositories.SessionRepository.
func (r *SessionRepository) Create(ctx context.Context, session *entities.VoterSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	copied := *session
	r.sessions[session.VoterID] = &copied
	return nil
}

// GetByVoterID implements repositories.SessionRepository.
func (r *SessionRepository) GetByVoterID(ctx context.Context, voterID string) (*entities.VoterSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[voterID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

// Update implements repositories.SessionRepository.
func (r *SessionRepository) Update(ctx context.Context, session *entities.VoterSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.VoterID]; !exists {
		return repositories.ErrNotFound
	}
	copied := *session
	r.sessions[session.VoterID] = &copied
	return nil
}

// Clear implements repositories.SessionRepository.
func (r *SessionRepository) Clear(ctx context.Context, voterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, voterID)
	return nil
}

// ExpireStale implements repositories.SessionRepository.
func (r *SessionRepository) ExpireStale(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired int64
	now := time.Now()
	for _, s := range r.sessions {
		if s.Status == entities.SessionStatusActive && now.After(s.ExpiresAt) {
			s.Expire()
			expired++
		}
	}
	return expired, nil
}
