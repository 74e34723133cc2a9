package voice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/voxballot/server/domain/repositories"
)

// ErrTargetNotFound is returned when every lookup strategy has been
// exhausted, including the single retry.
var ErrTargetNotFound = errors.New("action target not found")

// TargetKind names the kinds of action targets the engine resolves.
type TargetKind string

const (
	TargetNamedControl TargetKind = "named_control"
	TargetVoteButton   TargetKind = "vote_button"
	TargetModalConfirm TargetKind = "modal_confirm"
	TargetModalCancel  TargetKind = "modal_cancel"
)

// defaultRetryDelay is how long the resolver waits before its single second
// attempt. The surface is rebuilt dynamically and may still be rendering
// when the first attempt runs.
const defaultRetryDelay = 400 * time.Millisecond

// strategy is one lookup in a resolution chain. Chains are evaluated left
// to right; the first strategy returning a target wins.
type strategy struct {
	name string
	find func(s repositories.Surface) (repositories.ActionTarget, bool)
}

// Resolver locates action targets through declarative, ordered strategy
// chains. Attribute conventions vary across render paths, so resilience
// comes from redundant strategies rather than a single canonical selector.
type Resolver struct {
	surface    repositories.Surface
	scheduler  *Scheduler
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewResolver creates a resolver over the client's surface. Delayed retries
// run through the session scheduler so disposal cancels them.
func NewResolver(surface repositories.Surface, scheduler *Scheduler, logger *zap.Logger) *Resolver {
	return &Resolver{
		surface:    surface,
		scheduler:  scheduler,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
}

// Resolve finds the target for the given kind. If the first pass over the
// chain finds nothing, one retry runs after a fixed delay; after that the
// caller must report the target as missing rather than silently dropping
// the action. Returned handles are valid for the current dispatch only.
func (r *Resolver) Resolve(ctx context.Context, kind TargetKind, ordinal int) (repositories.ActionTarget, error) {
	chain := r.chainFor(kind, ordinal)

	if target, ok := r.attempt(chain); ok {
		return target, nil
	}

	if err := r.scheduler.Sleep(ctx, r.retryDelay); err != nil {
		return nil, fmt.Errorf("resolution retry aborted: %w", err)
	}

	if target, ok := r.attempt(chain); ok {
		return target, nil
	}

	r.logger.Warn("target resolution exhausted",
		zap.String("kind", string(kind)),
		zap.Int("ordinal", ordinal))
	return nil, ErrTargetNotFound
}

// ResolveNamed finds a control by its stable identifier, with the same
// retry contract.
func (r *Resolver) ResolveNamed(ctx context.Context, id string) (repositories.ActionTarget, error) {
	chain := []strategy{{
		name: "by-id",
		find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
			return s.FindByID(id)
		},
	}}

	if target, ok := r.attempt(chain); ok {
		return target, nil
	}
	if err := r.scheduler.Sleep(ctx, r.retryDelay); err != nil {
		return nil, fmt.Errorf("resolution retry aborted: %w", err)
	}
	if target, ok := r.attempt(chain); ok {
		return target, nil
	}
	return nil, ErrTargetNotFound
}

func (r *Resolver) attempt(chain []strategy) (repositories.ActionTarget, bool) {
	for _, st := range chain {
		if target, ok := st.find(r.surface); ok {
			r.logger.Debug("target resolved", zap.String("strategy", st.name))
			return target, true
		}
	}
	return nil, false
}

func (r *Resolver) chainFor(kind TargetKind, ordinal int) []strategy {
	switch kind {
	case TargetVoteButton:
		return voteButtonChain(ordinal)
	case TargetModalConfirm:
		return modalChain(SurfaceConfirmButton, "confirm-vote", RoleConfirm)
	case TargetModalCancel:
		return modalChain(SurfaceCancelButton, "cancel-vote", RoleCancel)
	default:
		return nil
	}
}

// voteButtonChain is the five-strategy chain for locating the vote button
// of a 1-based candidate ordinal.
func voteButtonChain(ordinal int) []strategy {
	composite := fmt.Sprintf("vote-candidate-%d", ordinal)
	container := fmt.Sprintf("candidate-%d", ordinal)
	ord := strconv.Itoa(ordinal)

	return []strategy{
		{
			name: "composite-attr-exact",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindByAttr(AttrTarget, composite)
			},
		},
		{
			name: "composite-attr-contains",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindByAttrContains(AttrTarget, container)
			},
		},
		{
			name: "button-in-container",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindInContainer(container, RoleButton)
			},
		},
		{
			name: "ordinal-attr-exact",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindByAttr(AttrOrdinal, ord)
			},
		},
		{
			name: "vote-control-scan",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				for _, t := range s.ListByRole(RoleVote) {
					if v, ok := t.Attr(AttrOrdinal); ok && v == ord {
						return t, true
					}
				}
				return nil, false
			},
		},
	}
}

// modalChain narrows from the most specific selector (stable id) to the
// least specific (role scan inside a generic overlay, then anywhere).
func modalChain(id, targetAttr, role string) []strategy {
	return []strategy{
		{
			name: "modal-by-id",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindByID(id)
			},
		},
		{
			name: "modal-attr-exact",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindByAttr(AttrTarget, targetAttr)
			},
		},
		{
			name: "modal-attr-contains",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindByAttrContains(AttrTarget, targetAttr)
			},
		},
		{
			name: "modal-role-in-overlay",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				return s.FindInContainer(SurfaceModalOverlay, role)
			},
		},
		{
			name: "modal-role-scan",
			find: func(s repositories.Surface) (repositories.ActionTarget, bool) {
				if targets := s.ListByRole(role); len(targets) > 0 {
					return targets[0], true
				}
				return nil, false
			},
		},
	}
}
