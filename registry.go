package forkvm

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/forkvm/forkvm/types"
)

// Registry maps fork identities to the handles of their materialized
// snapshots. Entries are only ever added; a registry lives and dies
// with its session.
//
// The registry is owned exclusively by a session and relies on the
// session's serialization; it is not safe for direct concurrent use.
type Registry struct {
	forks map[types.ForkID]types.ForkHandle
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		forks: make(map[types.ForkID]types.ForkHandle),
	}
}

// Resolve returns the handle registered for the identity, if any.
func (r *Registry) Resolve(id types.ForkID) (types.ForkHandle, bool) {
	handle, ok := r.forks[id]
	return handle, ok
}

// Register records the handle for the identity. Registering an identity
// twice is an error; callers consult Resolve first.
func (r *Registry) Register(id types.ForkID, handle types.ForkHandle) error {
	if _, ok := r.forks[id]; ok {
		return fmt.Errorf("%w: %s", types.ErrForkAlreadyRegistered, id)
	}
	r.forks[id] = handle
	return nil
}

// Len returns the number of registered forks.
func (r *Registry) Len() int {
	return len(r.forks)
}

// ForkIDs returns the registered identities in a stable order.
func (r *Registry) ForkIDs() []types.ForkID {
	ids := make([]types.ForkID, 0, len(r.forks))
	for id := range r.forks {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b types.ForkID) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	})
	return ids
}
