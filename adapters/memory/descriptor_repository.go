package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

// DescriptorRepository is an in-memory implementation of
// repositories.DescriptorRepository.
type DescriptorRepository struct {
	mu          sync.RWMutex
	descriptors map[string]*entities.FaceDescriptor // voterID -> descriptor
}

// NewDescriptorRepository creates an empty descriptor repository.
func NewDescriptorRepository() *DescriptorRepository {
	return &DescriptorRepository{
		descriptors: make(map[string]*entities.FaceDescriptor),
	}
}

// Set implements repositories.DescriptorRepository. An existing descriptor
// for the voter is replaced.
func (r *DescriptorRepository) Set(ctx context.Context, descriptor *entities.FaceDescriptor) error {
	if descriptor == nil {
		return errors.New("descriptor cannot be nil")
	}
	if descriptor.VoterID == "" {
		return errors.New("descriptor voter ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *descriptor
	copied.Descriptor = append([]float64(nil), descriptor.Descriptor...)
	r.descriptors[descriptor.VoterID] = &copied
	return nil
}

// Get implements repositories.DescriptorRepository.
func (r *DescriptorRepository) Get(ctx context.Context, voterID string) (*entities.FaceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptor, exists := r.descriptors[voterID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *descriptor
	copied.Descriptor = append([]float64(nil), descriptor.Descriptor...)
	return &copied, nil
}

// GetAll implements repositories.DescriptorRepository.
func (r *DescriptorRepository) GetAll(ctx context.Context) ([]*entities.FaceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.FaceDescriptor, 0, len(r.descriptors))
	for _, descriptor := range r.descriptors {
		copied := *descriptor
		copied.Descriptor = append([]float64(nil), descriptor.Descriptor...)
		out = append(out, &copied)
	}
	return out, nil
}
