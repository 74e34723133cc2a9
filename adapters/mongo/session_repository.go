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

type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database) repositories.SessionRepository {
	return &SessionRepository{
		collection: db.Collection("voter_sessions"),
	}
}

// Create implements repositories.SessionRepository. Sessions are keyed by
// voter, so any previous session document for the voter is replaced.
func (r *SessionRepository) Create(ctx context.Context, session *entities.VoterSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	// Drop any previous session for this voter before inserting
	if _, err := r.collection.DeleteMany(ctx, bson.M{"voter_id": session.VoterID}); err != nil {
		return fmt.Errorf("failed to clear previous sessions: %w", err)
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByVoterID implements repositories.SessionRepository
func (r *SessionRepository) GetByVoterID(ctx context.Context, voterID string) (*entities.VoterSession, error) {
	if voterID == "" {
		return nil, errors.New("voter ID cannot be empty")
	}

	var session entities.VoterSession
	err := r.collection.FindOne(ctx, bson.M{"voter_id": voterID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session for voter %s: %w", voterID, err)
	}

	return &session, nil
}

// Update implements repositories.SessionRepository
func (r *SessionRepository) Update(ctx context.Context, session *entities.VoterSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"voter_id":       session.VoterID,
			"last_active_at": session.LastActiveAt,
			"expires_at":     session.ExpiresAt,
			"status":         session.Status,
			"context":        session.Context,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": session.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// Clear implements repositories.SessionRepository
func (r *SessionRepository) Clear(ctx context.Context, voterID string) error {
	if voterID == "" {
		return errors.New("voter ID cannot be empty")
	}

	if _, err := r.collection.DeleteMany(ctx, bson.M{"voter_id": voterID}); err != nil {
		return fmt.Errorf("failed to clear session for voter %s: %w", voterID, err)
	}

	return nil
}

// ExpireStale implements repositories.SessionRepository
func (r *SessionRepository) ExpireStale(ctx context.Context) (int64, error) {
	filter := bson.M{
		"status":     entities.SessionStatusActive,
		"expires_at": bson.M{"$lt": time.Now()},
	}
	update := bson.M{
		"$set": bson.M{"status": entities.SessionStatusExpired},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale sessions: %w", err)
	}

	return result.ModifiedCount, nil
}
