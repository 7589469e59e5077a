package types

import (
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethCore "github.com/ethereum/go-ethereum/core"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
)

// Call is a fully-formed execution environment for one simulated call.
// Calls are similar to transactions but carry no signature and skip
// sequence number checks; the engine sets the nonce from the current
// state of the caller.
type Call struct {
	From Address
	To   Address
	Data []byte
	// Value is the amount transferred alongside the call; nil means zero.
	Value    *big.Int
	GasLimit uint64
	// Committing controls whether state changes made during execution
	// survive the call (write) or are discarded after it returns (read).
	Committing bool
}

// ValueOrZero returns the call value, treating nil as zero.
func (c *Call) ValueOrZero() *big.Int {
	if c.Value == nil {
		return big.NewInt(0)
	}
	return c.Value
}

// Message constructs a geth core.Message for the call.
// Gas prices are pinned to zero so simulated executions never charge
// fees on top of the transferred value.
func (c *Call) Message(nonce uint64) *gethCore.Message {
	to := c.To.ToCommon()
	return &gethCore.Message{
		From:              c.From.ToCommon(),
		To:                &to,
		Value:             c.ValueOrZero(),
		Data:              c.Data,
		Nonce:             nonce,
		GasLimit:          c.GasLimit,
		GasPrice:          big.NewInt(0),
		GasTipCap:         big.NewInt(0),
		GasFeeCap:         big.NewInt(0),
		SkipAccountChecks: true,
	}
}

// Transaction constructs an unsigned geth transaction equivalent to the
// call; used to derive a hash that log entries can be attributed to.
func (c *Call) Transaction(nonce uint64) *gethTypes.Transaction {
	to := c.To.ToCommon()
	return gethTypes.NewTx(&gethTypes.LegacyTx{
		GasPrice: big.NewInt(0),
		Gas:      c.GasLimit,
		To:       &to,
		Value:    c.ValueOrZero(),
		Data:     c.Data,
		Nonce:    nonce,
	})
}

// Hash returns the hash attributed to the call.
func (c *Call) Hash(nonce uint64) gethCommon.Hash {
	return c.Transaction(nonce).Hash()
}
