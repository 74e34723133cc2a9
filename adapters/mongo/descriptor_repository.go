package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

type DescriptorRepository struct {
	collection *mongo.Collection
}

// NewDescriptorRepository creates a new MongoDB face descriptor repository
func NewDescriptorRepository(db *mongo.Database) repositories.DescriptorRepository {
	return &DescriptorRepository{
		collection: db.Collection("face_descriptors"),
	}
}

// Set implements repositories.DescriptorRepository
func (r *DescriptorRepository) Set(ctx context.Context, descriptor *entities.FaceDescriptor) error {
	if descriptor == nil {
		return errors.New("descriptor cannot be nil")
	}
	if descriptor.VoterID == "" {
		return errors.New("descriptor voter ID cannot be empty")
	}

	filter := bson.M{"voter_id": descriptor.VoterID}
	update := bson.M{
		"$set": bson.M{
			"descriptor": descriptor.Descriptor,
			"updated_at": descriptor.UpdatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set descriptor: %w", err)
	}

	return nil
}

// Get implements repositories.DescriptorRepository
func (r *DescriptorRepository) Get(ctx context.Context, voterID string) (*entities.FaceDescriptor, error) {
	if voterID == "" {
		return nil, errors.New("voter ID cannot be empty")
	}

	var descriptor entities.FaceDescriptor
	err := r.collection.FindOne(ctx, bson.M{"voter_id": voterID}).Decode(&descriptor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get descriptor for voter %s: %w", voterID, err)
	}

	return &descriptor, nil
}

// GetAll implements repositories.DescriptorRepository
func (r *DescriptorRepository) GetAll(ctx context.Context) ([]*entities.FaceDescriptor, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list descriptors: %w", err)
	}
	defer cursor.Close(ctx)

	var descriptors []*entities.FaceDescriptor
	if err := cursor.All(ctx, &descriptors); err != nil {
		return nil, fmt.Errorf("failed to decode descriptors: %w", err)
	}

	return descriptors, nil
}
