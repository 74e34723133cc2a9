// Package memory provides in-memory implementations of the storage
// repositories, suitable for tests and single-node deployments.
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

// VoterRepository is an in-memory implementation of
// repositories.VoterRepository.
type VoterRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entities.Voter
	byNum   map[string]*entities.Voter
	secrets map[string]string
}

// NewVoterRepository creates an empty voter repository.
func NewVoterRepository() *VoterRepository {
	return &VoterRepository{
		byID:    make(map[string]*entities.Voter),
		byNum:   make(map[string]*entities.Voter),
		secrets: make(map[string]string),
	}
}

// Create implements repositories.VoterRepository.
func (r *VoterRepository) Create(ctx context.Context, voter *entities.Voter) error {
	if voter == nil {
		return errors.New("voter cannot be nil")
	}
	if err := voter.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNum[voter.VoterNumber]; exists {
		return errors.New("voter with this number already exists")
	}
	if voter.ID == "" {
		voter.ID = uuid.New().String()
	}
	now := time.Now()
	voter.CreatedAt = now
	voter.UpdatedAt = now

	copied := *voter
	r.byID[voter.ID] = &copied
	r.byNum[voter.VoterNumber] = &copied
	r.secrets[voter.VoterNumber] = voter.SecretKey
	return nil
}

// GetByID implements repositories.VoterRepository.
func (r *VoterRepository) GetByID(ctx context.Context, id string) (*entities.Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	voter, exists := r.byID[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *voter
	return &copied, nil
}

// GetByVoterNumber implements repositories.VoterRepository.
func (r *VoterRepository) GetByVoterNumber(ctx context.Context, number string) (*entities.Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	voter, exists := r.byNum[number]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *voter
	return &copied, nil
}

// ValidateVoter implements repositories.VoterRepository.
func (r *VoterRepository) ValidateVoter(ctx context.Context, number, secret string) (*entities.Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.secrets[number]
	if !exists || stored != secret {
		return nil, errors.New("invalid credentials")
	}
	voter, exists := r.byNum[number]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *voter
	return &copied, nil
}
