package entities

import (
	"errors"
	"time"
)

// Voter represents a registered voter account.
type Voter struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	VoterNumber string    `json:"voter_number" bson:"voter_number"`
	Name        string    `json:"name" bson:"name"`
	SecretKey   string    `json:"-" bson:"secret_key"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// VoteRecord is one cast vote, appended once per voter.
type VoteRecord struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	VoterID       string    `json:"voter_id" bson:"voter_id"`
	CandidateOrd  int       `json:"candidate_ordinal" bson:"candidate_ordinal"`
	CandidateName string    `json:"candidate_name" bson:"candidate_name"`
	CastAt        time.Time `json:"cast_at" bson:"cast_at"`
}

// FaceDescriptor holds the stored biometric descriptor for one voter. The
// matching procedure itself is external; the server only stores the map.
type FaceDescriptor struct {
	VoterID    string    `json:"voter_id" bson:"voter_id"`
	Descriptor []float64 `json:"descriptor" bson:"descriptor"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (v *Voter) Validate() error {
	if v.VoterNumber == "" {
		return errors.New("voter number is required")
	}
	if v.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (r *VoteRecord) Validate() error {
	if r.VoterID == "" {
		return errors.New("voter_id is required")
	}
	if r.CandidateOrd < 1 {
		return errors.New("candidate ordinal must be positive")
	}
	return nil
}
