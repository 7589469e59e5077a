package types

import (
	"context"
)

// Provisioner materializes snapshots of remote chain state.
type Provisioner interface {
	// Create materializes a fresh snapshot for the given fork identity
	// and returns its handle plus the chain configuration observed at
	// that height. Creation may block on network I/O; failures surface
	// as a ProvisionError and leave nothing registered.
	Create(ctx context.Context, id ForkID) (ForkHandle, *ChainContext, error)
}

// Engine executes calls against the snapshot it currently holds active.
//
// An engine holds at most one active snapshot at a time; every Execute
// operates against whichever handle was last selected. The engine is
// owned by a single session and its methods are not safe for concurrent
// use across sessions.
type Engine interface {
	// Select makes the given handle the active snapshot. A non-nil
	// override replaces the chain configuration the snapshot is held
	// under; with nil the configuration currently held for that
	// snapshot applies. Selecting an unknown or disposed handle fails
	// with a SelectError.
	Select(handle ForkHandle, override *ChainContext) error

	// IsActive reports whether the given handle is the active snapshot.
	IsActive(handle ForkHandle) bool

	// Execute runs the call against the active snapshot. Engine-level
	// faults return an EngineError; application-level reverts are
	// reported inside the Result.
	Execute(ctx context.Context, call *Call) (*Result, error)
}
