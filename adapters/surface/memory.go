// Package surface provides an in-memory mirror of a client's interaction
// surface. The hosting client syncs its inventory of invocable elements on
// connect and whenever the page is rebuilt; the engine queries the mirror
// and invocations are forwarded back to the client.
package surface

import (
	"context"
	"strings"
	"sync"

	"github.com/voxballot/server/domain/repositories"
)

// Element is one invocable element as reported by the client.
type Element struct {
	ID          string            `json:"id"`
	Role        string            `json:"role"`
	Label       string            `json:"label"`
	ContainerID string            `json:"container_id,omitempty"`
	Visible     bool              `json:"visible"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// InvokeFunc forwards an invocation to the host. The engine only learns
// whether forwarding succeeded; the host-defined effect is not observed.
type InvokeFunc func(ctx context.Context, e Element) error

// Memory is a thread-safe surface mirror. Element order is preserved so
// fallback scans are deterministic.
type Memory struct {
	mu       sync.RWMutex
	elements []Element
	invoke   InvokeFunc
}

var _ repositories.Surface = (*Memory)(nil)

// NewMemory creates an empty mirror. invoke may be nil for read-only use.
func NewMemory(invoke InvokeFunc) *Memory {
	return &Memory{invoke: invoke}
}

// Replace swaps the entire inventory. A sync message describes the whole
// surface, so replace semantics, not merge.
func (m *Memory) Replace(elements []Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements = make([]Element, len(elements))
	copy(m.elements, elements)
}

// Upsert adds or updates a single element by id.
func (m *Memory) Upsert(e Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.elements {
		if m.elements[i].ID == e.ID && e.ID != "" {
			m.elements[i] = e
			return
		}
	}
	m.elements = append(m.elements, e)
}

// Remove deletes an element by id.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.elements {
		if m.elements[i].ID == id {
			m.elements = append(m.elements[:i], m.elements[i+1:]...)
			return
		}
	}
}

// FindByID implements repositories.Surface.
func (m *Memory) FindByID(id string) (repositories.ActionTarget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.elements {
		if e.ID == id {
			return m.target(e), true
		}
	}
	return nil, false
}

// FindByAttr implements repositories.Surface.
func (m *Memory) FindByAttr(name, value string) (repositories.ActionTarget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.elements {
		if e.Attrs[name] == value && value != "" {
			return m.target(e), true
		}
	}
	return nil, false
}

// FindByAttrContains implements repositories.Surface.
func (m *Memory) FindByAttrContains(name, substr string) (repositories.ActionTarget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.elements {
		if v, ok := e.Attrs[name]; ok && substr != "" && strings.Contains(v, substr) {
			return m.target(e), true
		}
	}
	return nil, false
}

// FindInContainer implements repositories.Surface.
func (m *Memory) FindInContainer(containerID, role string) (repositories.ActionTarget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.elements {
		if e.ContainerID == containerID && e.Role == role {
			return m.target(e), true
		}
	}
	return nil, false
}

// ListByRole implements repositories.Surface.
func (m *Memory) ListByRole(role string) []repositories.ActionTarget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []repositories.ActionTarget
	for _, e := range m.elements {
		if e.Role == role {
			out = append(out, m.target(e))
		}
	}
	return out
}

// IsVisible implements repositories.Surface.
func (m *Memory) IsVisible(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.elements {
		if e.ID == id {
			return e.Visible
		}
	}
	return false
}

func (m *Memory) target(e Element) repositories.ActionTarget {
	return &memoryTarget{element: e, invoke: m.invoke}
}

// memoryTarget is a per-dispatch handle; it snapshots the element so a
// surface change mid-dispatch cannot mutate an already resolved target.
type memoryTarget struct {
	element Element
	invoke  InvokeFunc
}

func (t *memoryTarget) ID() string   { return t.element.ID }
func (t *memoryTarget) Role() string { return t.element.Role }

func (t *memoryTarget) Attr(name string) (string, bool) {
	v, ok := t.element.Attrs[name]
	return v, ok
}

func (t *memoryTarget) Label() string { return t.element.Label }

func (t *memoryTarget) Invoke(ctx context.Context) error {
	if t.invoke == nil {
		return nil
	}
	return t.invoke(ctx, t.element)
}
