// Package emulator executes simulated calls against forked chain state.
//
// An Emulator owns an arena of snapshots, each layering an in-memory
// committed overlay on top of a lazily-imported remote base, plus a
// single active-snapshot slot. Calls always run against the active
// snapshot; committing calls fold their changes into its overlay,
// non-committing calls discard them.
package emulator

import (
	"context"
	"math/big"
	"sync"

	gethCore "github.com/ethereum/go-ethereum/core"
	gethVM "github.com/ethereum/go-ethereum/core/vm"
	"github.com/rs/zerolog"

	"github.com/forkvm/forkvm/emulator/state"
	"github.com/forkvm/forkvm/types"
)

// Emulator is the execution engine of a fork session.
//
// A session owns exactly one emulator and serializes operations on it;
// the internal lock only guards against misuse, it is not a concurrency
// model.
type Emulator struct {
	log zerolog.Logger

	mu         sync.Mutex
	snapshots  map[types.ForkHandle]*snapshot
	active     types.ForkHandle
	nextHandle types.ForkHandle
}

type snapshot struct {
	remote    *state.RemoteView
	committed *state.DeltaView
	// context is the chain configuration the snapshot is currently held
	// under; starts as the provisioner-observed one and is replaced by
	// select-time overrides.
	context *types.ChainContext
}

var _ types.Engine = &Emulator{}

// NewEmulator constructs an emulator with an empty arena.
func NewEmulator(log zerolog.Logger) *Emulator {
	return &Emulator{
		log:        log.With().Str("component", "emulator").Logger(),
		snapshots:  make(map[types.ForkHandle]*snapshot),
		nextHandle: 1,
	}
}

// Adopt takes ownership of a freshly materialized snapshot and returns
// its handle. Handles are never recycled.
func (e *Emulator) Adopt(remote *state.RemoteView, observed *types.ChainContext) types.ForkHandle {
	e.mu.Lock()
	defer e.mu.Unlock()

	handle := e.nextHandle
	e.nextHandle++
	e.snapshots[handle] = &snapshot{
		remote:    remote,
		committed: state.NewDeltaView(remote),
		context:   observed,
	}
	e.log.Debug().
		Uint64("handle", uint64(handle)).
		Uint64("height", remote.Height()).
		Msg("snapshot adopted")
	return handle
}

// Select makes the handle the active snapshot, replacing its held chain
// configuration when an override is given. Selecting the already-active
// handle is a no-op.
func (e *Emulator) Select(handle types.ForkHandle, override *types.ChainContext) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.snapshots[handle]
	if !ok {
		return types.NewSelectError(handle, types.ErrForkNotFound)
	}
	if e.active == handle {
		return nil
	}
	if override != nil {
		snap.context = override
	}
	e.active = handle
	e.log.Debug().Uint64("handle", uint64(handle)).Msg("snapshot selected")
	return nil
}

// IsActive reports whether the handle is the active snapshot.
func (e *Emulator) IsActive(handle types.ForkHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return handle.Valid() && e.active == handle
}

// Execute runs the call against the active snapshot.
func (e *Emulator) Execute(ctx context.Context, call *types.Call) (*types.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.snapshots[e.active]
	if !ok {
		return nil, types.NewEngineError(types.ErrNoActiveFork)
	}

	snap.remote.SetCallContext(ctx)
	defer snap.remote.SetCallContext(nil)

	db := state.NewStateDB(snap.committed)
	cfg := configFromContext(snap.context)

	nonce, err := snap.committed.GetNonce(call.From.ToCommon())
	if err != nil {
		return nil, types.NewEngineError(err)
	}
	msg := call.Message(nonce)

	evm := gethVM.NewEVM(
		*cfg.BlockContext,
		gethVM.TxContext{Origin: msg.From, GasPrice: big.NewInt(0)},
		db,
		cfg.ChainConfig,
		cfg.EVMConfig,
	)

	gasPool := new(gethCore.GasPool).AddGas(cfg.BlockContext.GasLimit)
	execResult, err := gethCore.NewStateTransition(evm, msg, gasPool).TransitionDb()
	if err != nil {
		// precheck failure; no state was touched
		return nil, types.NewEngineError(err)
	}
	if stateErr := db.Error(); stateErr != nil {
		return nil, types.NewEngineError(stateErr)
	}

	res := &types.Result{
		GasConsumed:   execResult.UsedGas,
		ReturnedValue: execResult.ReturnData,
	}
	if execResult.Failed() {
		res.Failed = true
		res.VMError = execResult.Err
	} else {
		res.Logs = db.Logs(snap.context.BlockNumber, call.Hash(nonce), 0)
	}

	// a committing call persists even when it reverted: the caller's
	// nonce bump survives, the reverted frames do not
	if call.Committing {
		if err := db.MergeInto(snap.committed); err != nil {
			return nil, types.NewEngineError(err)
		}
	}

	e.log.Debug().
		Uint64("handle", uint64(e.active)).
		Str("to", call.To.String()).
		Bool("committing", call.Committing).
		Bool("failed", res.Failed).
		Uint64("gas", res.GasConsumed).
		Msg("call executed")
	return res, nil
}

// Close drops every snapshot and clears the active slot. The emulator
// must not be used afterwards.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots = make(map[types.ForkHandle]*snapshot)
	e.active = types.NoFork
	return nil
}
