// Package forkvm simulates contract-level transactions against
// snapshots ("forks") of remote EVM chain state, without mutating the
// real chain.
//
// A Session composes a fork registry with an execution engine: forks
// are created-or-selected idempotently by identity (endpoint + pinned
// height), and subsequent calls run against whichever fork is active.
// Reads (Call) discard their state changes; writes (Write) persist them
// within the fork. TypedCall and TypedWrite layer ABI encoding and
// decoding on top of the raw payload path.
package forkvm

import (
	"context"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/forkvm/forkvm/metrics"
	"github.com/forkvm/forkvm/types"
)

// Session is the entry point for fork simulation.
//
// All operations on one session are mutually exclusive and observe a
// total order matching issue order; the active snapshot is
// session-global mutable state. Independent sessions are fully
// isolated.
type Session struct {
	log       zerolog.Logger
	collector metrics.Collector

	mu          sync.Mutex
	registry    *Registry
	provisioner types.Provisioner
	engine      types.Engine
}

// Option configures a session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithCollector sets the metrics collector.
func WithCollector(collector metrics.Collector) Option {
	return func(s *Session) {
		s.collector = collector
	}
}

// NewSession constructs a session over the given provisioner and
// engine, with an empty fork registry.
func NewSession(provisioner types.Provisioner, engine types.Engine, opts ...Option) *Session {
	s := &Session{
		log:         zerolog.Nop(),
		collector:   metrics.NewNoopCollector(),
		registry:    NewRegistry(),
		provisioner: provisioner,
		engine:      engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "fork_session").Logger()
	return s
}

// CreateOrSelect makes the fork with the given identity the active one,
// materializing it first if this session has not seen the identity yet.
//
// When the resolved fork is already active the call is a complete
// no-op: no re-selection happens and a supplied override is NOT
// applied. Otherwise a non-nil override replaces the chain
// configuration the fork executes under; with nil the configuration the
// fork is currently held under applies (for a fresh fork, the one
// observed at its height).
//
// A failed provision leaves the registry and the active snapshot
// exactly as they were.
func (s *Session) CreateOrSelect(ctx context.Context, id types.ForkID, override *types.ChainContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if handle, ok := s.registry.Resolve(id); ok {
		if s.engine.IsActive(handle) {
			return nil
		}
		if err := s.engine.Select(handle, override); err != nil {
			return err
		}
		s.collector.ForkSelected()
		return nil
	}

	handle, observed, err := s.provisioner.Create(ctx, id)
	if err != nil {
		return err
	}
	if err := s.registry.Register(id, handle); err != nil {
		return err
	}
	effective := override
	if effective == nil {
		effective = observed
	}
	if err := s.engine.Select(handle, effective); err != nil {
		return err
	}
	s.collector.ForkCreated()
	s.collector.ForkSelected()
	s.log.Debug().Str("fork", id.String()).Msg("fork created and selected")
	return nil
}

// Call executes a non-committing call against the active fork: state
// changes made during execution are discarded after it returns.
//
// from and to must be exactly 20 bytes; anything else fails with an
// InvalidAddressError before the engine is reached.
func (s *Session) Call(ctx context.Context, from, to, payload []byte) (*types.Result, error) {
	return s.execute(ctx, from, to, payload, nil, false)
}

// Write executes a committing call against the active fork: state
// changes persist for the lifetime of the fork and are visible to
// subsequent calls against it, but not to other forks. A nil value
// transfers nothing.
func (s *Session) Write(ctx context.Context, from, to, payload []byte, value *big.Int) (*types.Result, error) {
	return s.execute(ctx, from, to, payload, value, true)
}

func (s *Session) execute(ctx context.Context, from, to, payload []byte, value *big.Int, committing bool) (*types.Result, error) {
	fromAddr, err := types.AddressFromBytes(from)
	if err != nil {
		return nil, err
	}
	toAddr, err := types.AddressFromBytes(to)
	if err != nil {
		return nil, err
	}
	if value != nil && value.Sign() < 0 {
		return nil, types.ErrNegativeValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	call := &types.Call{
		From:       fromAddr,
		To:         toAddr,
		Data:       payload,
		Value:      value,
		GasLimit:   types.DefaultCallGasLimit,
		Committing: committing,
	}
	started := time.Now()
	res, err := s.engine.Execute(ctx, call)
	if err != nil {
		return nil, err
	}
	s.collector.CallExecuted(committing, res.Failed, time.Since(started))
	return res, nil
}

// ForkIDs returns the identities registered in this session, in a
// stable order.
func (s *Session) ForkIDs() []types.ForkID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.ForkIDs()
}

// Close releases the session's snapshots and remote resources. The
// session must not be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var merr *multierror.Error
	if closer, ok := s.engine.(io.Closer); ok {
		merr = multierror.Append(merr, closer.Close())
	}
	if closer, ok := s.provisioner.(io.Closer); ok {
		merr = multierror.Append(merr, closer.Close())
	}
	return merr.ErrorOrNil()
}
