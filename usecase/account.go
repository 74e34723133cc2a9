package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
	"github.com/voxballot/server/internal/auth"
)

// Flag names tracked per voter.
const (
	FlagHasVoted     = "has_voted"
	FlagFaceVerified = "face_verified"
)

// AccountService wraps the persistent store collaborator: voter sessions,
// per-voter flags, vote records, and the face descriptor map. The voice
// engine only reaches it through the logout helper; the rest serves the
// HTTP API.
type AccountService struct {
	voters      repositories.VoterRepository
	sessions    repositories.SessionRepository
	votes       repositories.VoteRepository
	descriptors repositories.DescriptorRepository
	logger      *zap.Logger
}

// NewAccountService creates the account service.
func NewAccountService(
	voters repositories.VoterRepository,
	sessions repositories.SessionRepository,
	votes repositories.VoteRepository,
	descriptors repositories.DescriptorRepository,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		voters:      voters,
		sessions:    sessions,
		votes:       votes,
		descriptors: descriptors,
		logger:      logger,
	}
}

// Login validates voter credentials, opens a session, and issues a token.
func (s *AccountService) Login(ctx context.Context, number, secret string) (string, *entities.VoterSession, error) {
	voter, err := s.voters.ValidateVoter(ctx, number, secret)
	if err != nil {
		return "", nil, fmt.Errorf("credential validation: %w", err)
	}

	session := entities.NewVoterSession(voter.ID)
	session.ID = uuid.New().String()
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	token, err := auth.GenerateVoterToken(voter.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("voter logged in", zap.String("voter_id", voter.ID))
	return token, session, nil
}

// Logout clears the voter's session. Used directly by the API and, through
// LogoutFunc, by the voice engine's logout intent.
func (s *AccountService) Logout(ctx context.Context, voterID string) error {
	if err := s.sessions.Clear(ctx, voterID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("voter logged out", zap.String("voter_id", voterID))
	return nil
}

// SetContext persists the page the voter's client navigated to.
func (s *AccountService) SetContext(ctx context.Context, voterID string, page entities.PageContext) error {
	session, err := s.sessions.GetByVoterID(ctx, voterID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	session.SetContext(page)
	return s.sessions.Update(ctx, session)
}

// RecordVote appends the voter's vote and sets the has-voted flag. A second
// vote is rejected with repositories.ErrAlreadyVoted.
func (s *AccountService) RecordVote(ctx context.Context, voterID string, ordinal int, candidateName string) (*entities.VoteRecord, error) {
	record := &entities.VoteRecord{
		ID:            uuid.New().String(),
		VoterID:       voterID,
		CandidateOrd:  ordinal,
		CandidateName: candidateName,
		CastAt:        time.Now(),
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.votes.Append(ctx, record); err != nil {
		return nil, err
	}
	if err := s.votes.SetFlag(ctx, voterID, FlagHasVoted, true); err != nil {
		s.logger.Error("vote recorded but flag not set",
			zap.String("voter_id", voterID),
			zap.Error(err))
	}
	s.logger.Info("vote recorded",
		zap.String("voter_id", voterID),
		zap.Int("candidate", ordinal))
	return record, nil
}

// HasVoted reports the per-voter has-voted flag.
func (s *AccountService) HasVoted(ctx context.Context, voterID string) (bool, error) {
	return s.votes.GetFlag(ctx, voterID, FlagHasVoted)
}

// MarkFaceVerified records the outcome of the external biometric check.
func (s *AccountService) MarkFaceVerified(ctx context.Context, voterID string, verified bool) error {
	return s.votes.SetFlag(ctx, voterID, FlagFaceVerified, verified)
}

// IsFaceVerified reports whether the voter passed the biometric check.
func (s *AccountService) IsFaceVerified(ctx context.Context, voterID string) (bool, error) {
	return s.votes.GetFlag(ctx, voterID, FlagFaceVerified)
}

// SaveDescriptor stores a voter's face descriptor for the external matcher.
func (s *AccountService) SaveDescriptor(ctx context.Context, voterID string, descriptor []float64) error {
	return s.descriptors.Set(ctx, &entities.FaceDescriptor{
		VoterID:    voterID,
		Descriptor: descriptor,
		UpdatedAt:  time.Now(),
	})
}

// Descriptors returns the full descriptor map.
func (s *AccountService) Descriptors(ctx context.Context) ([]*entities.FaceDescriptor, error) {
	return s.descriptors.GetAll(ctx)
}
