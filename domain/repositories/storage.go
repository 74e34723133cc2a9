package repositories

import (
	"context"
	"errors"

	"github.com/voxballot/server/domain/entities"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyVoted is returned when a second vote record is appended for the
// same voter.
var ErrAlreadyVoted = errors.New("voter has already voted")

// VoterRepository defines data access methods for voter accounts.
type VoterRepository interface {
	Create(ctx context.Context, voter *entities.Voter) error
	GetByID(ctx context.Context, id string) (*entities.Voter, error)
	GetByVoterNumber(ctx context.Context, number string) (*entities.Voter, error)
	// ValidateVoter validates voter credentials for authentication.
	ValidateVoter(ctx context.Context, number, secret string) (*entities.Voter, error)
}

// SessionRepository persists voter sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.VoterSession) error
	GetByVoterID(ctx context.Context, voterID string) (*entities.VoterSession, error)
	Update(ctx context.Context, session *entities.VoterSession) error
	// Clear removes the voter's session; used by the logout helper.
	Clear(ctx context.Context, voterID string) error
	// ExpireStale marks sessions past their expiry; returns the count.
	ExpireStale(ctx context.Context) (int64, error)
}

// VoteRepository appends vote records and tracks per-voter boolean flags
// (has-voted, face-verified).
type VoteRepository interface {
	// Append records a vote; returns ErrAlreadyVoted on a duplicate.
	Append(ctx context.Context, record *entities.VoteRecord) error
	HasVoted(ctx context.Context, voterID string) (bool, error)
	SetFlag(ctx context.Context, voterID, name string, value bool) error
	GetFlag(ctx context.Context, voterID, name string) (bool, error)
}

// DescriptorRepository stores the face descriptor map consumed by the
// external biometric verification procedure.
type DescriptorRepository interface {
	Set(ctx context.Context, descriptor *entities.FaceDescriptor) error
	Get(ctx context.Context, voterID string) (*entities.FaceDescriptor, error)
	GetAll(ctx context.Context) ([]*entities.FaceDescriptor, error)
}
