package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxballot/server/adapters/surface"
	"github.com/voxballot/server/domain/repositories"
)

func newTestResolver(s *surface.Memory) (*Resolver, *clock.Mock, *Scheduler) {
	mock := clock.NewMock()
	sched := NewScheduler(mock)
	return NewResolver(s, sched, zap.NewNop()), mock, sched
}

func TestResolveVoteButtonChainOrder(t *testing.T) {
	tests := []struct {
		name    string
		element surface.Element
	}{
		{
			"composite attr exact",
			surface.Element{ID: "a", Role: RoleButton, Attrs: map[string]string{AttrTarget: "vote-candidate-3"}},
		},
		{
			"composite attr contains",
			surface.Element{ID: "b", Role: RoleButton, Attrs: map[string]string{AttrTarget: "cast-candidate-3-now"}},
		},
		{
			"button inside candidate container",
			surface.Element{ID: "c", Role: RoleButton, ContainerID: "candidate-3"},
		},
		{
			"ordinal attr on the button",
			surface.Element{ID: "d", Role: RoleButton, Attrs: map[string]string{AttrOrdinal: "3"}},
		},
		{
			"scan of vote controls",
			surface.Element{ID: "e", Role: RoleVote, Attrs: map[string]string{"slot": "x", AttrOrdinal: "3"}},
		},
	}

	// Each case exposes only one element, findable by exactly one strategy
	// further down the chain than the previous case. All must resolve.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := surface.NewMemory(nil)
			s.Replace([]surface.Element{tt.element})
			resolver, _, _ := newTestResolver(s)

			target, err := resolver.Resolve(context.Background(), TargetVoteButton, 3)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if target.ID() != tt.element.ID {
				t.Errorf("resolved %q, want %q", target.ID(), tt.element.ID)
			}
		})
	}
}

// The scan strategy must not shadow the more specific ones.
func TestResolveVoteButtonPriority(t *testing.T) {
	s := surface.NewMemory(nil)
	s.Replace([]surface.Element{
		{ID: "fallback", Role: RoleVote, Attrs: map[string]string{AttrOrdinal: "2"}},
		{ID: "primary", Role: RoleButton, Attrs: map[string]string{AttrTarget: "vote-candidate-2"}},
	})
	resolver, _, _ := newTestResolver(s)

	target, err := resolver.Resolve(context.Background(), TargetVoteButton, 2)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if target.ID() != "primary" {
		t.Errorf("resolved %q, want the composite-attribute match", target.ID())
	}
}

func TestResolveWrongOrdinalNotMatched(t *testing.T) {
	s := surface.NewMemory(nil)
	s.Replace([]surface.Element{
		{ID: "other", Role: RoleVote, Attrs: map[string]string{AttrOrdinal: "4"}},
	})
	resolver, mock, sched := newTestResolver(s)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), TargetVoteButton, 3)
		done <- err
	}()

	waitForPending(t, sched, 1)
	mock.Add(defaultRetryDelay)
	if err := <-done; !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("Resolve = %v, want ErrTargetNotFound", err)
	}
}

func TestResolveRetrySucceedsWhenTargetAppears(t *testing.T) {
	s := surface.NewMemory(nil)
	resolver, mock, sched := newTestResolver(s)

	type result struct {
		target repositories.ActionTarget
		err    error
	}
	done := make(chan result, 1)
	go func() {
		target, err := resolver.Resolve(context.Background(), TargetVoteButton, 1)
		done <- result{target, err}
	}()

	// First attempt fails and the retry delay is now pending; the surface
	// finishes rendering before it elapses.
	waitForPending(t, sched, 1)
	s.Upsert(surface.Element{ID: "late", Role: RoleButton, Attrs: map[string]string{AttrTarget: "vote-candidate-1"}})
	mock.Add(defaultRetryDelay)

	r := <-done
	if r.err != nil {
		t.Fatalf("Resolve after retry failed: %v", r.err)
	}
	if r.target.ID() != "late" {
		t.Errorf("resolved %q, want %q", r.target.ID(), "late")
	}
}

func TestResolveFailsAfterSingleRetry(t *testing.T) {
	s := surface.NewMemory(nil)
	resolver, mock, sched := newTestResolver(s)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), TargetVoteButton, 1)
		done <- err
	}()

	waitForPending(t, sched, 1)
	mock.Add(defaultRetryDelay)

	if err := <-done; !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("Resolve = %v, want ErrTargetNotFound", err)
	}
	// No third attempt may be pending.
	if sched.Pending() != 0 {
		t.Errorf("Pending = %d after exhausted resolution, want 0", sched.Pending())
	}
}

func TestResolveAbortedBySessionClose(t *testing.T) {
	s := surface.NewMemory(nil)
	resolver, _, sched := newTestResolver(s)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), TargetVoteButton, 1)
		done <- err
	}()

	waitForPending(t, sched, 1)
	sched.Close()

	if err := <-done; !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("Resolve = %v, want wrapped ErrSchedulerClosed", err)
	}
}

func TestResolveModalChains(t *testing.T) {
	tests := []struct {
		name    string
		kind    TargetKind
		element surface.Element
	}{
		{"confirm by id", TargetModalConfirm, surface.Element{ID: SurfaceConfirmButton, Role: RoleButton}},
		{"confirm by attr", TargetModalConfirm, surface.Element{ID: "x", Role: RoleButton, Attrs: map[string]string{AttrTarget: "confirm-vote"}}},
		{"confirm role in overlay", TargetModalConfirm, surface.Element{ID: "y", Role: RoleConfirm, ContainerID: SurfaceModalOverlay}},
		{"confirm role anywhere", TargetModalConfirm, surface.Element{ID: "z", Role: RoleConfirm}},
		{"cancel by id", TargetModalCancel, surface.Element{ID: SurfaceCancelButton, Role: RoleButton}},
		{"cancel role in overlay", TargetModalCancel, surface.Element{ID: "w", Role: RoleCancel, ContainerID: SurfaceModalOverlay}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := surface.NewMemory(nil)
			s.Replace([]surface.Element{tt.element})
			resolver, _, _ := newTestResolver(s)

			target, err := resolver.Resolve(context.Background(), tt.kind, 0)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if target.ID() != tt.element.ID {
				t.Errorf("resolved %q, want %q", target.ID(), tt.element.ID)
			}
		})
	}
}

func TestResolveNamedControl(t *testing.T) {
	s := surface.NewMemory(nil)
	s.Replace([]surface.Element{{ID: "login-btn", Role: RoleButton}})
	resolver, _, _ := newTestResolver(s)

	target, err := resolver.ResolveNamed(context.Background(), "login-btn")
	if err != nil {
		t.Fatalf("ResolveNamed failed: %v", err)
	}
	if target.ID() != "login-btn" {
		t.Errorf("resolved %q, want login-btn", target.ID())
	}
}
