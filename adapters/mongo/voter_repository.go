package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

type VoterRepository struct {
	collection *mongo.Collection
}

// NewVoterRepository creates a new MongoDB voter repository
func NewVoterRepository(db *mongo.Database) repositories.VoterRepository {
	return &VoterRepository{
		collection: db.Collection("voters"),
	}
}

// Create implements repositories.VoterRepository
func (r *VoterRepository) Create(ctx context.Context, voter *entities.Voter) error {
	if voter == nil {
		return errors.New("voter cannot be nil")
	}
	if err := voter.Validate(); err != nil {
		return err
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"voter_number": voter.VoterNumber})
	if err != nil {
		return fmt.Errorf("failed to check voter number: %w", err)
	}
	if count > 0 {
		return errors.New("voter with this number already exists")
	}

	if voter.ID == "" {
		voter.ID = uuid.New().String()
	}
	now := time.Now()
	voter.CreatedAt = now
	voter.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, voter); err != nil {
		return fmt.Errorf("failed to create voter: %w", err)
	}

	return nil
}

// GetByID implements repositories.VoterRepository
func (r *VoterRepository) GetByID(ctx context.Context, id string) (*entities.Voter, error) {
	if id == "" {
		return nil, errors.New("voter ID cannot be empty")
	}

	var voter entities.Voter
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&voter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voter %s: %w", id, err)
	}

	return &voter, nil
}

// GetByVoterNumber implements repositories.VoterRepository
func (r *VoterRepository) GetByVoterNumber(ctx context.Context, number string) (*entities.Voter, error) {
	if number == "" {
		return nil, errors.New("voter number cannot be empty")
	}

	var voter entities.Voter
	err := r.collection.FindOne(ctx, bson.M{"voter_number": number}).Decode(&voter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voter by number: %w", err)
	}

	return &voter, nil
}

// ValidateVoter implements repositories.VoterRepository
func (r *VoterRepository) ValidateVoter(ctx context.Context, number, secret string) (*entities.Voter, error) {
	voter, err := r.GetByVoterNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}

	if voter.SecretKey != secret {
		return nil, errors.New("invalid credentials")
	}

	return voter, nil
}
