package types

import (
	"math"
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// DefaultBlockGasLimit is the gas ceiling used when no override is
	// given; simulations are not supposed to run out of block space.
	DefaultBlockGasLimit = uint64(math.MaxInt64)

	// DefaultCallGasLimit is the gas given to a single call.
	DefaultCallGasLimit = uint64(100_000_000)
)

// ChainContext carries the chain configuration a snapshot executes
// under. It is produced by the provisioner from the chain observed at
// the fork height, and may be replaced wholesale through the
// environment override of a select operation.
type ChainContext struct {
	ChainID     *big.Int
	BlockNumber uint64
	BlockTime   uint64
	GasLimit    uint64
	BaseFee     *big.Int
	Coinbase    Address
	Random      gethCommon.Hash

	// GetHashFunc serves the BLOCKHASH opcode; when nil a hash derived
	// from the block number is used.
	GetHashFunc func(n uint64) gethCommon.Hash
}

// NewDefaultChainContext returns a context for the given chain id and
// block number with zero base fee and an unconstrained gas ceiling.
func NewDefaultChainContext(chainID *big.Int, blockNumber uint64) *ChainContext {
	return &ChainContext{
		ChainID:     chainID,
		BlockNumber: blockNumber,
		GasLimit:    DefaultBlockGasLimit,
		BaseFee:     big.NewInt(0),
		GetHashFunc: DerivedBlockHashFunc,
	}
}

// DerivedBlockHashFunc returns a deterministic pseudo hash for a block
// number, for contexts where the real chain is not consulted.
func DerivedBlockHashFunc(n uint64) gethCommon.Hash {
	return gethCrypto.Keccak256Hash(new(big.Int).SetUint64(n).Bytes())
}
