package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

type VoteRepository struct {
	votes *mongo.Collection
	flags *mongo.Collection
}

// NewVoteRepository creates a new MongoDB vote repository
func NewVoteRepository(db *mongo.Database) repositories.VoteRepository {
	return &VoteRepository{
		votes: db.Collection("votes"),
		flags: db.Collection("voter_flags"),
	}
}

// Append implements repositories.VoteRepository
func (r *VoteRepository) Append(ctx context.Context, record *entities.VoteRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	count, err := r.votes.CountDocuments(ctx, bson.M{"voter_id": record.VoterID})
	if err != nil {
		return fmt.Errorf("failed to check existing votes: %w", err)
	}
	if count > 0 {
		return repositories.ErrAlreadyVoted
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if _, err := r.votes.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to append vote: %w", err)
	}

	return nil
}

// HasVoted implements repositories.VoteRepository
func (r *VoteRepository) HasVoted(ctx context.Context, voterID string) (bool, error) {
	if voterID == "" {
		return false, errors.New("voter ID cannot be empty")
	}

	count, err := r.votes.CountDocuments(ctx, bson.M{"voter_id": voterID})
	if err != nil {
		return false, fmt.Errorf("failed to count votes for voter %s: %w", voterID, err)
	}

	return count > 0, nil
}

// SetFlag implements repositories.VoteRepository
func (r *VoteRepository) SetFlag(ctx context.Context, voterID, name string, value bool) error {
	if voterID == "" {
		return errors.New("voter ID cannot be empty")
	}

	filter := bson.M{"voter_id": voterID}
	update := bson.M{
		"$set": bson.M{fmt.Sprintf("flags.%s", name): value},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.flags.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set flag %s: %w", name, err)
	}

	return nil
}

// GetFlag implements repositories.VoteRepository
func (r *VoteRepository) GetFlag(ctx context.Context, voterID, name string) (bool, error) {
	if voterID == "" {
		return false, errors.New("voter ID cannot be empty")
	}

	var doc struct {
		Flags map[string]bool `bson:"flags"`
	}
	err := r.flags.FindOne(ctx, bson.M{"voter_id": voterID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get flag %s: %w", name, err)
	}

	return doc.Flags[name], nil
}
