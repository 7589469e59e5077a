package testutils

import (
	"context"
	"fmt"
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/forkvm/forkvm/provider"
)

// TestAccount is the remote-side state of one address on a TestChain.
type TestAccount struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Storage map[gethCommon.Hash]gethCommon.Hash
}

// TestChain is an in-memory stand-in for a remote node. It satisfies
// provider.ChainReader so forks can be provisioned from it without any
// network.
type TestChain struct {
	ID         *big.Int
	HeadNumber uint64
	HeadTime   uint64
	Accounts   map[gethCommon.Address]*TestAccount

	// ChainIDFailures makes that many leading ChainID calls fail, for
	// exercising the provisioner's retry path.
	ChainIDFailures int

	// StateReads counts state queries served.
	StateReads int
}

var _ provider.ChainReader = &TestChain{}

// NewTestChain returns an empty chain with the given id and head.
func NewTestChain(id int64, headNumber uint64) *TestChain {
	return &TestChain{
		ID:         big.NewInt(id),
		HeadNumber: headNumber,
		HeadTime:   1_700_000_000,
		Accounts:   make(map[gethCommon.Address]*TestAccount),
	}
}

// SetAccount installs an account on the chain.
func (c *TestChain) SetAccount(addr gethCommon.Address, acc *TestAccount) {
	if acc.Balance == nil {
		acc.Balance = new(big.Int)
	}
	if acc.Storage == nil {
		acc.Storage = make(map[gethCommon.Hash]gethCommon.Hash)
	}
	c.Accounts[addr] = acc
}

func (c *TestChain) account(addr gethCommon.Address) *TestAccount {
	if acc, ok := c.Accounts[addr]; ok {
		return acc
	}
	return &TestAccount{Balance: new(big.Int)}
}

// BalanceAt returns the balance of the account.
func (c *TestChain) BalanceAt(_ context.Context, addr gethCommon.Address, _ *big.Int) (*big.Int, error) {
	c.StateReads++
	return new(big.Int).Set(c.account(addr).Balance), nil
}

// NonceAt returns the nonce of the account.
func (c *TestChain) NonceAt(_ context.Context, addr gethCommon.Address, _ *big.Int) (uint64, error) {
	c.StateReads++
	return c.account(addr).Nonce, nil
}

// CodeAt returns the code of the account.
func (c *TestChain) CodeAt(_ context.Context, addr gethCommon.Address, _ *big.Int) ([]byte, error) {
	c.StateReads++
	return c.account(addr).Code, nil
}

// StorageAt returns the value of the storage slot.
func (c *TestChain) StorageAt(_ context.Context, addr gethCommon.Address, key gethCommon.Hash, _ *big.Int) ([]byte, error) {
	c.StateReads++
	acc := c.account(addr)
	if acc.Storage == nil {
		return gethCommon.Hash{}.Bytes(), nil
	}
	return acc.Storage[key].Bytes(), nil
}

// ChainID returns the chain id, failing while ChainIDFailures is
// positive.
func (c *TestChain) ChainID(context.Context) (*big.Int, error) {
	if c.ChainIDFailures > 0 {
		c.ChainIDFailures--
		return nil, fmt.Errorf("chain id unavailable")
	}
	return c.ID, nil
}

// HeaderByNumber returns a minimal header for the number, or the head
// for nil.
func (c *TestChain) HeaderByNumber(_ context.Context, number *big.Int) (*gethTypes.Header, error) {
	n := c.HeadNumber
	if number != nil {
		n = number.Uint64()
	}
	if n > c.HeadNumber {
		return nil, fmt.Errorf("block %d not found", n)
	}
	return &gethTypes.Header{
		Number:     new(big.Int).SetUint64(n),
		Time:       c.HeadTime,
		Difficulty: big.NewInt(0),
		BaseFee:    big.NewInt(0),
	}, nil
}

// Close is a no-op.
func (c *TestChain) Close() {}

// DialerFor returns a provider dial function serving the given chains
// by endpoint.
func DialerFor(chains map[string]*TestChain) provider.DialFunc {
	return func(_ context.Context, endpoint string) (provider.ChainReader, error) {
		chain, ok := chains[endpoint]
		if !ok {
			return nil, fmt.Errorf("unknown endpoint %s", endpoint)
		}
		return chain, nil
	}
}
