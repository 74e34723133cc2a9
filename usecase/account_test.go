package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/voxballot/server/adapters/memory"
	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
	"github.com/voxballot/server/internal/auth"
)

func newAccountFixture(t *testing.T) (*AccountService, *memory.VoterRepository) {
	t.Helper()
	voters := memory.NewVoterRepository()
	service := NewAccountService(
		voters,
		memory.NewSessionRepository(),
		memory.NewVoteRepository(),
		memory.NewDescriptorRepository(),
		zaptest.NewLogger(t),
	)
	return service, voters
}

func registerVoter(t *testing.T, voters *memory.VoterRepository) *entities.Voter {
	t.Helper()
	voter := &entities.Voter{
		VoterNumber: "V-1001",
		Name:        "Alex Doe",
		SecretKey:   "hunter2",
	}
	if err := voters.Create(context.Background(), voter); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return voter
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	service, voters := newAccountFixture(t)
	voter := registerVoter(t, voters)

	token, session, err := service.Login(context.Background(), "V-1001", "hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.VoterID != voter.ID {
		t.Errorf("session bound to %s, want %s", session.VoterID, voter.ID)
	}
	if session.Context != entities.ContextLogin {
		t.Errorf("new session should start on login page, got %s", session.Context)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.VoterID != voter.ID || claims.Role != "voter" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadSecret(t *testing.T) {
	service, voters := newAccountFixture(t)
	registerVoter(t, voters)

	if _, _, err := service.Login(context.Background(), "V-1001", "wrong"); err == nil {
		t.Fatal("Login() with bad secret should fail")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	service, voters := newAccountFixture(t)
	voter := registerVoter(t, voters)

	if _, _, err := service.Login(context.Background(), "V-1001", "hunter2"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := service.Logout(context.Background(), voter.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := service.SetContext(context.Background(), voter.ID, entities.ContextHome); err == nil {
		t.Fatal("SetContext() after logout should fail, the session is gone")
	}
}

func TestSetContextPersists(t *testing.T) {
	service, voters := newAccountFixture(t)
	voter := registerVoter(t, voters)

	if _, _, err := service.Login(context.Background(), "V-1001", "hunter2"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := service.SetContext(context.Background(), voter.ID, entities.ContextVoting); err != nil {
		t.Fatalf("SetContext() error = %v", err)
	}
}

func TestRecordVoteOncePerVoter(t *testing.T) {
	service, voters := newAccountFixture(t)
	voter := registerVoter(t, voters)

	record, err := service.RecordVote(context.Background(), voter.ID, 3, "Candidate 3")
	if err != nil {
		t.Fatalf("RecordVote() error = %v", err)
	}
	if record.CandidateOrd != 3 {
		t.Errorf("recorded ordinal %d, want 3", record.CandidateOrd)
	}

	voted, err := service.HasVoted(context.Background(), voter.ID)
	if err != nil {
		t.Fatalf("HasVoted() error = %v", err)
	}
	if !voted {
		t.Error("has-voted flag not set after first vote")
	}

	if _, err := service.RecordVote(context.Background(), voter.ID, 1, "Candidate 1"); !errors.Is(err, repositories.ErrAlreadyVoted) {
		t.Fatalf("second vote error = %v, want ErrAlreadyVoted", err)
	}
}

func TestFaceVerificationFlag(t *testing.T) {
	service, voters := newAccountFixture(t)
	voter := registerVoter(t, voters)

	verified, err := service.IsFaceVerified(context.Background(), voter.ID)
	if err != nil {
		t.Fatalf("IsFaceVerified() error = %v", err)
	}
	if verified {
		t.Error("voter should start unverified")
	}

	if err := service.MarkFaceVerified(context.Background(), voter.ID, true); err != nil {
		t.Fatalf("MarkFaceVerified() error = %v", err)
	}
	verified, err = service.IsFaceVerified(context.Background(), voter.ID)
	if err != nil {
		t.Fatalf("IsFaceVerified() error = %v", err)
	}
	if !verified {
		t.Error("verified flag not persisted")
	}
}

func TestDescriptorsRoundTrip(t *testing.T) {
	service, voters := newAccountFixture(t)
	voter := registerVoter(t, voters)

	descriptor := []float64{0.12, -0.3, 0.88}
	if err := service.SaveDescriptor(context.Background(), voter.ID, descriptor); err != nil {
		t.Fatalf("SaveDescriptor() error = %v", err)
	}

	all, err := service.Descriptors(context.Background())
	if err != nil {
		t.Fatalf("Descriptors() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(all))
	}
	if all[0].VoterID != voter.ID || len(all[0].Descriptor) != 3 {
		t.Errorf("unexpected descriptor: %+v", all[0])
	}
}
