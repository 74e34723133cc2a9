package api

import "time"

// LoginRequest represents the request payload for voter authentication
type LoginRequest struct {
	VoterNumber string `json:"voter_number" validate:"required"`
	SecretKey   string `json:"secret_key" validate:"required"`
}

// LoginResponse represents the response payload for voter authentication
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	VoterID   string    `json:"voter_id"`
}

// VoteRequest represents the request payload for recording a vote
type VoteRequest struct {
	CandidateOrdinal int    `json:"candidate_ordinal" validate:"required,min=1"`
	CandidateName    string `json:"candidate_name,omitempty"`
}

// VoteStatusResponse reports whether the voter has already voted.
type VoteStatusResponse struct {
	HasVoted     bool `json:"has_voted"`
	FaceVerified bool `json:"face_verified"`
}

// DescriptorRequest represents the payload for storing a face descriptor
type DescriptorRequest struct {
	Descriptor []float64 `json:"descriptor" validate:"required"`
}

// VerificationRequest records the outcome of the biometric check
type VerificationRequest struct {
	Verified bool `json:"verified"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
