package repositories

import "context"

// ActionTarget is an opaque handle to one invocable element on the
// interaction surface. Handles are never cached beyond a single dispatch
// because the surface may change between utterances.
type ActionTarget interface {
	// ID returns the element's stable identifier, if any.
	ID() string
	// Role returns the element's role (e.g. "button", "vote", "confirm").
	Role() string
	// Attr returns the named attribute's value.
	Attr(name string) (string, bool)
	// Label returns the element's human-readable label.
	Label() string
	// Invoke triggers the host-defined behavior bound to the element. The
	// engine only observes whether resolution succeeded, not the effect.
	Invoke(ctx context.Context) error
}

// Surface is the interaction-surface registry queried by the resolver and
// the router's context-detection override. All queries return zero or one
// handle except ListByRole.
type Surface interface {
	FindByID(id string) (ActionTarget, bool)
	FindByAttr(name, value string) (ActionTarget, bool)
	FindByAttrContains(name, substr string) (ActionTarget, bool)
	// FindInContainer returns the first element of the given role inside
	// the identified container.
	FindInContainer(containerID, role string) (ActionTarget, bool)
	ListByRole(role string) []ActionTarget
	// IsVisible reports whether the identified element is currently shown.
	IsVisible(id string) bool
}
