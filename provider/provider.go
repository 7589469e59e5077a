// Package provider materializes fork snapshots from remote endpoints.
package provider

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/forkvm/forkvm/emulator/state"
	"github.com/forkvm/forkvm/types"
)

const (
	// retry schedule for dialing and observing the remote chain
	retryDuration      = 500 * time.Millisecond
	retryDurationMax   = 10 * time.Second
	retryJitterPercent = 25
	retryMaxAttempts   = 5

	blockHashCacheSize = 1024
)

// ChainReader is the remote node surface the provider consumes.
// *ethclient.Client satisfies it.
type ChainReader interface {
	state.RemoteSource
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethTypes.Header, error)
	Close()
}

// DialFunc opens a ChainReader for an endpoint.
type DialFunc func(ctx context.Context, endpoint string) (ChainReader, error)

func defaultDial(ctx context.Context, endpoint string) (ChainReader, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// Arena adopts materialized snapshots; the emulator implements it.
type Arena interface {
	Adopt(remote *state.RemoteView, observed *types.ChainContext) types.ForkHandle
}

// Provider provisions snapshots: it dials the fork's endpoint, observes
// the chain configuration at the fork height, builds the lazily
// importing remote view, and hands the snapshot to the engine arena.
//
// A single provider serves all forks of one session; the optional
// persistent cache is shared across them.
type Provider struct {
	log   zerolog.Logger
	arena Arena
	dial  DialFunc
	cache *state.Cache

	mu      sync.Mutex
	readers []ChainReader
}

var _ types.Provisioner = &Provider{}

// Option configures a Provider.
type Option func(*Provider)

// WithDialFunc replaces how endpoints are dialed.
func WithDialFunc(dial DialFunc) Option {
	return func(p *Provider) {
		p.dial = dial
	}
}

// WithPersistentCache backs every provisioned fork with the given
// persistent state cache.
func WithPersistentCache(cache *state.Cache) Option {
	return func(p *Provider) {
		p.cache = cache
	}
}

// New constructs a provider registering snapshots with the given arena.
func New(log zerolog.Logger, arena Arena, opts ...Option) *Provider {
	p := &Provider{
		log:   log.With().Str("component", "fork_provider").Logger(),
		arena: arena,
		dial:  defaultDial,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create materializes a snapshot for the fork identity and returns its
// handle and the chain configuration observed at the fork height.
// Transient remote faults are retried with capped exponential backoff;
// exhausted retries surface as a ProvisionError and nothing is
// registered.
func (p *Provider) Create(ctx context.Context, id types.ForkID) (types.ForkHandle, *types.ChainContext, error) {
	var (
		reader  ChainReader
		chainID *big.Int
		header  *gethTypes.Header
	)

	backoff := retry.NewExponential(retryDuration)
	backoff = retry.WithCappedDuration(retryDurationMax, backoff)
	backoff = retry.WithJitterPercent(retryJitterPercent, backoff)
	backoff = retry.WithMaxRetries(retryMaxAttempts, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		if reader == nil {
			reader, err = p.dial(ctx, id.Endpoint)
			if err != nil {
				reader = nil
				return retry.RetryableError(fmt.Errorf("dialing %s: %w", id.Endpoint, err))
			}
		}
		chainID, err = reader.ChainID(ctx)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("reading chain id: %w", err))
		}
		header, err = reader.HeaderByNumber(ctx, id.Height.BigInt())
		if err != nil {
			return retry.RetryableError(fmt.Errorf("reading header at %s: %w", id.Height, err))
		}
		return nil
	})
	if err != nil {
		if reader != nil {
			reader.Close()
		}
		return types.NoFork, nil, types.NewProvisionError(id, err)
	}
	if header == nil {
		reader.Close()
		return types.NoFork, nil, types.NewProvisionError(id, fmt.Errorf("no header at %s", id.Height))
	}

	// "latest" resolves to a concrete number here; state imports and
	// cache entries are pinned to it for the snapshot's lifetime.
	height := header.Number.Uint64()

	var viewOpts []state.RemoteViewOption
	if p.cache != nil {
		viewOpts = append(viewOpts, state.WithPersistentCache(p.cache))
	}
	remote, err := state.NewRemoteView(reader, id.Endpoint, height, viewOpts...)
	if err != nil {
		reader.Close()
		return types.NoFork, nil, types.NewProvisionError(id, err)
	}

	observed := &types.ChainContext{
		ChainID:     chainID,
		BlockNumber: height,
		BlockTime:   header.Time,
		GasLimit:    types.DefaultBlockGasLimit,
		BaseFee:     header.BaseFee,
		Coinbase:    types.NewAddress(header.Coinbase),
		Random:      header.MixDigest,
		GetHashFunc: p.blockHashFunc(reader),
	}

	p.mu.Lock()
	p.readers = append(p.readers, reader)
	p.mu.Unlock()

	handle := p.arena.Adopt(remote, observed)
	p.log.Info().
		Str("fork", id.String()).
		Uint64("height", height).
		Uint64("handle", uint64(handle)).
		Msg("fork provisioned")
	return handle, observed, nil
}

// blockHashFunc serves BLOCKHASH from the remote chain, memoized.
// Lookup failures degrade to a derived pseudo hash; BLOCKHASH has no
// error channel.
func (p *Provider) blockHashFunc(reader ChainReader) func(n uint64) gethCommon.Hash {
	cache, err := lru.New[uint64, gethCommon.Hash](blockHashCacheSize)
	if err != nil {
		return types.DerivedBlockHashFunc
	}
	return func(n uint64) gethCommon.Hash {
		if hash, ok := cache.Get(n); ok {
			return hash
		}
		header, err := reader.HeaderByNumber(context.Background(), new(big.Int).SetUint64(n))
		if err != nil || header == nil {
			p.log.Debug().Err(err).Uint64("number", n).Msg("block hash lookup failed")
			return types.DerivedBlockHashFunc(n)
		}
		hash := header.Hash()
		cache.Add(n, hash)
		return hash
	}
}

// Close closes every opened remote client and the persistent cache.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var merr *multierror.Error
	for _, reader := range p.readers {
		reader.Close()
	}
	p.readers = nil
	if p.cache != nil {
		if err := p.cache.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("closing fork cache: %w", err))
		}
		p.cache = nil
	}
	return merr.ErrorOrNil()
}
