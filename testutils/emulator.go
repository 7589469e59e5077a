package testutils

import (
	"context"
	cryptoRand "crypto/rand"
	"math/rand"
	"testing"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/forkvm/forkvm/types"
)

// TestEngine is a func-field engine mock.
type TestEngine struct {
	SelectFunc   func(handle types.ForkHandle, override *types.ChainContext) error
	IsActiveFunc func(handle types.ForkHandle) bool
	ExecuteFunc  func(ctx context.Context, call *types.Call) (*types.Result, error)
}

var _ types.Engine = &TestEngine{}

// Select makes the handle active
func (e *TestEngine) Select(handle types.ForkHandle, override *types.ChainContext) error {
	if e.SelectFunc == nil {
		panic("method not set")
	}
	return e.SelectFunc(handle, override)
}

// IsActive reports whether the handle is active
func (e *TestEngine) IsActive(handle types.ForkHandle) bool {
	if e.IsActiveFunc == nil {
		panic("method not set")
	}
	return e.IsActiveFunc(handle)
}

// Execute runs a call
func (e *TestEngine) Execute(ctx context.Context, call *types.Call) (*types.Result, error) {
	if e.ExecuteFunc == nil {
		panic("method not set")
	}
	return e.ExecuteFunc(ctx, call)
}

// TestProvisioner is a func-field provisioner mock.
type TestProvisioner struct {
	CreateFunc func(ctx context.Context, id types.ForkID) (types.ForkHandle, *types.ChainContext, error)
}

var _ types.Provisioner = &TestProvisioner{}

// Create materializes a snapshot
func (p *TestProvisioner) Create(ctx context.Context, id types.ForkID) (types.ForkHandle, *types.ChainContext, error) {
	if p.CreateFunc == nil {
		panic("method not set")
	}
	return p.CreateFunc(ctx, id)
}

// RandomCommonAddress returns a random geth address.
func RandomCommonAddress(t testing.TB) gethCommon.Address {
	ret := gethCommon.Address{}
	_, err := cryptoRand.Read(ret[:gethCommon.AddressLength])
	require.NoError(t, err)
	return ret
}

// RandomAddress returns a random address.
func RandomAddress(t testing.TB) types.Address {
	return types.NewAddress(RandomCommonAddress(t))
}

// RandomCommonHash returns a random hash.
func RandomCommonHash(t testing.TB) gethCommon.Hash {
	ret := gethCommon.Hash{}
	_, err := cryptoRand.Read(ret[:gethCommon.HashLength])
	require.NoError(t, err)
	return ret
}

// RandomData returns between 1 and 100 random bytes.
func RandomData(t testing.TB) []byte {
	size := rand.Intn(100) + 1
	ret := make([]byte, size)
	_, err := cryptoRand.Read(ret[:])
	require.NoError(t, err)
	return ret
}
