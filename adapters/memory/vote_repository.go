package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

// VoteRepository is an in-memory implementation of
// repositories.VoteRepository.
type VoteRepository struct {
	mu      sync.RWMutex
	records []*entities.VoteRecord
	voted   map[string]bool
	flags   map[string]map[string]bool // voterID -> flag name -> value
}

// NewVoteRepository creates an empty vote repository.
func NewVoteRepository() *VoteRepository {
	return &VoteRepository{
		voted: make(map[string]bool),
		flags: make(map[string]map[string]bool),
	}
}

// Append implements repositories.VoteRepository.
func (r *VoteRepository) Append(ctx context.Context, record *entities.VoteRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.voted[record.VoterID] {
		return repositories.ErrAlreadyVoted
	}
	copied := *record
	r.records = append(r.records, &copied)
	r.voted[record.VoterID] = true
	return nil
}

// HasVoted implements repositories.VoteRepository.
func (r *VoteRepository) HasVoted(ctx context.Context, voterID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.voted[voterID], nil
}

// SetFlag implements repositories.VoteRepository.
func (r *VoteRepository) SetFlag(ctx context.Context, voterID, name string, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.flags[voterID] == nil {
		r.flags[voterID] = make(map[string]bool)
	}
	r.flags[voterID][name] = value
	return nil
}

// GetFlag implements repositories.VoteRepository.
func (r *VoteRepository) GetFlag(ctx context.Context, voterID, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[voterID][name], nil
}

// Records returns a copy of all appended votes.
func (r *VoteRepository) Records() []*entities.VoteRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.VoteRecord, len(r.records))
	for i, rec := range r.records {
		copied := *rec
		out[i] = &copied
	}
	return out
}
