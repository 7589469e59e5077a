package state

import (
	"context"
	"fmt"
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"

	"github.com/forkvm/forkvm/types"
)

const (
	accountCacheSize = 4096
	slotCacheSize    = 16384
)

// RemoteSource is the subset of a remote node client the view fetches
// through. *ethclient.Client satisfies it.
type RemoteSource interface {
	BalanceAt(ctx context.Context, account gethCommon.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account gethCommon.Address, blockNumber *big.Int) (uint64, error)
	CodeAt(ctx context.Context, account gethCommon.Address, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account gethCommon.Address, key gethCommon.Hash, blockNumber *big.Int) ([]byte, error)
}

// remoteAccount holds the essentials imported for one address.
type remoteAccount struct {
	balance  *big.Int
	nonce    uint64
	code     []byte
	codeHash gethCommon.Hash
}

func (a *remoteAccount) exists() bool {
	return a.balance.Sign() != 0 || a.nonce != 0 || len(a.code) != 0
}

// RemoteView is a read-only state view that lazily imports accounts and
// storage slots from a remote node, pinned to one block height.
//
// Every import goes through an in-memory LRU first and an optional
// persistent cache second; a given account or slot reaches the remote
// source at most once per view. The view itself never mutates, so it
// can safely sit below any number of delta layers.
type RemoteView struct {
	source   RemoteSource
	endpoint string
	height   uint64

	accounts *lru.Cache[gethCommon.Address, *remoteAccount]
	slots    *lru.Cache[types.SlotAddress, gethCommon.Hash]
	cache    *Cache

	// callCtx scopes remote fetches to the operation currently running
	// on the owning session; state reads themselves carry no context.
	callCtx context.Context

	fetches *atomic.Uint64
}

var _ types.ReadOnlyView = &RemoteView{}

// RemoteViewOption configures a RemoteView.
type RemoteViewOption func(*RemoteView)

// WithPersistentCache backs the view with a persistent fork cache.
func WithPersistentCache(cache *Cache) RemoteViewOption {
	return func(v *RemoteView) {
		v.cache = cache
	}
}

// NewRemoteView constructs a view over the given source pinned to the
// given height.
func NewRemoteView(source RemoteSource, endpoint string, height uint64, opts ...RemoteViewOption) (*RemoteView, error) {
	accounts, err := lru.New[gethCommon.Address, *remoteAccount](accountCacheSize)
	if err != nil {
		return nil, err
	}
	slots, err := lru.New[types.SlotAddress, gethCommon.Hash](slotCacheSize)
	if err != nil {
		return nil, err
	}
	view := &RemoteView{
		source:   source,
		endpoint: endpoint,
		height:   height,
		accounts: accounts,
		slots:    slots,
		fetches:  atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(view)
	}
	return view, nil
}

// Height returns the block height the view is pinned to.
func (v *RemoteView) Height() uint64 {
	return v.height
}

// Fetches returns the number of remote round-trips performed so far.
func (v *RemoteView) Fetches() uint64 {
	return v.fetches.Load()
}

// SetCallContext sets the context remote fetches run under for the
// duration of the current operation. Passing nil resets to Background.
func (v *RemoteView) SetCallContext(ctx context.Context) {
	v.callCtx = ctx
}

func (v *RemoteView) ctx() context.Context {
	if v.callCtx == nil {
		return context.Background()
	}
	return v.callCtx
}

func (v *RemoteView) heightArg() *big.Int {
	return new(big.Int).SetUint64(v.height)
}

func (v *RemoteView) getAccount(addr gethCommon.Address) (*remoteAccount, error) {
	if acc, ok := v.accounts.Get(addr); ok {
		return acc, nil
	}
	if v.cache != nil {
		if stored, ok := v.cache.GetAccount(v.endpoint, v.height, addr); ok {
			acc := &remoteAccount{
				balance: new(big.Int).SetBytes(stored.Balance),
				nonce:   stored.Nonce,
				code:    stored.Code,
			}
			acc.codeHash = codeHashOf(acc)
			v.accounts.Add(addr, acc)
			return acc, nil
		}
	}

	ctx := v.ctx()
	balance, err := v.source.BalanceAt(ctx, addr, v.heightArg())
	if err != nil {
		return nil, fmt.Errorf("importing balance of %s: %w", addr, err)
	}
	nonce, err := v.source.NonceAt(ctx, addr, v.heightArg())
	if err != nil {
		return nil, fmt.Errorf("importing nonce of %s: %w", addr, err)
	}
	code, err := v.source.CodeAt(ctx, addr, v.heightArg())
	if err != nil {
		return nil, fmt.Errorf("importing code of %s: %w", addr, err)
	}
	v.fetches.Inc()

	acc := &remoteAccount{balance: balance, nonce: nonce, code: code}
	acc.codeHash = codeHashOf(acc)
	v.accounts.Add(addr, acc)
	if v.cache != nil {
		v.cache.PutAccount(v.endpoint, v.height, addr, &cachedAccount{
			Balance: balance.Bytes(),
			Nonce:   nonce,
			Code:    code,
		})
	}
	return acc, nil
}

func codeHashOf(acc *remoteAccount) gethCommon.Hash {
	switch {
	case !acc.exists():
		return gethCommon.Hash{}
	case len(acc.code) == 0:
		return gethTypes.EmptyCodeHash
	default:
		return gethCrypto.Keccak256Hash(acc.code)
	}
}

// Exist returns true if the address holds balance, nonce or code at the
// pinned height. A remote node cannot distinguish a truly absent
// account from an existing empty one, and the EVM treats both alike.
func (v *RemoteView) Exist(addr gethCommon.Address) (bool, error) {
	acc, err := v.getAccount(addr)
	if err != nil {
		return false, err
	}
	return acc.exists(), nil
}

// IsCreated always returns false; nothing is created below a snapshot.
func (v *RemoteView) IsCreated(gethCommon.Address) bool {
	return false
}

// HasSelfDestructed always returns false.
func (v *RemoteView) HasSelfDestructed(gethCommon.Address) bool {
	return false
}

// GetBalance returns the balance of the address at the pinned height.
func (v *RemoteView) GetBalance(addr gethCommon.Address) (*big.Int, error) {
	acc, err := v.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.balance), nil
}

// GetNonce returns the nonce of the address at the pinned height.
func (v *RemoteView) GetNonce(addr gethCommon.Address) (uint64, error) {
	acc, err := v.getAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.nonce, nil
}

// GetCode returns the code of the address at the pinned height.
func (v *RemoteView) GetCode(addr gethCommon.Address) ([]byte, error) {
	acc, err := v.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.code, nil
}

// GetCodeHash returns the code hash of the address at the pinned
// height; the zero hash for an absent account.
func (v *RemoteView) GetCodeHash(addr gethCommon.Address) (gethCommon.Hash, error) {
	acc, err := v.getAccount(addr)
	if err != nil {
		return gethCommon.Hash{}, err
	}
	return acc.codeHash, nil
}

// GetCodeSize returns the code size of the address at the pinned height.
func (v *RemoteView) GetCodeSize(addr gethCommon.Address) (int, error) {
	acc, err := v.getAccount(addr)
	if err != nil {
		return 0, err
	}
	return len(acc.code), nil
}

// GetState returns the value of the storage slot at the pinned height.
func (v *RemoteView) GetState(sk types.SlotAddress) (gethCommon.Hash, error) {
	if value, ok := v.slots.Get(sk); ok {
		return value, nil
	}
	if v.cache != nil {
		if value, ok := v.cache.GetSlot(v.endpoint, v.height, sk); ok {
			v.slots.Add(sk, value)
			return value, nil
		}
	}
	raw, err := v.source.StorageAt(v.ctx(), sk.Address, sk.Key, v.heightArg())
	if err != nil {
		return gethCommon.Hash{}, fmt.Errorf("importing slot %x of %s: %w", sk.Key, sk.Address, err)
	}
	v.fetches.Inc()
	value := gethCommon.BytesToHash(raw)
	v.slots.Add(sk, value)
	if v.cache != nil {
		v.cache.PutSlot(v.endpoint, v.height, sk, value)
	}
	return value, nil
}

// GetTransientState always returns the zero hash; transient storage
// lives in the delta layers.
func (v *RemoteView) GetTransientState(types.SlotAddress) gethCommon.Hash {
	return gethCommon.Hash{}
}

// GetRefund always returns zero.
func (v *RemoteView) GetRefund() uint64 {
	return 0
}

// AddressInAccessList always returns false.
func (v *RemoteView) AddressInAccessList(gethCommon.Address) bool {
	return false
}

// SlotInAccessList always returns false.
func (v *RemoteView) SlotInAccessList(types.SlotAddress) (bool, bool) {
	return false, false
}
