package types

import (
	gethTypes "github.com/ethereum/go-ethereum/core/types"
)

// Result captures the outcome of one executed call.
//
// An application-level revert is not an error: the engine returns it
// structurally with Failed set and the revert reason in VMError, while
// engine-level faults (bad state, failed prechecks) surface as an
// EngineError instead of a Result.
type Result struct {
	// Failed is set when execution reverted or hit a VM fault.
	Failed bool
	// VMError holds the VM-level failure (revert, out of gas, ...).
	VMError error
	// ReturnedValue is the call's return data; for a reverted call it
	// holds the revert data.
	ReturnedValue []byte
	// GasConsumed is the total gas used by the execution.
	GasConsumed uint64
	// Logs holds the events emitted during execution.
	Logs []*gethTypes.Log
}

// Succeeded reports whether the call completed without reverting.
func (res *Result) Succeeded() bool {
	return !res.Failed
}

// Receipt constructs an EVM-style receipt for the result, for callers
// that integrate with tooling expecting geth receipts.
func (res *Result) Receipt() *gethTypes.Receipt {
	receipt := &gethTypes.Receipt{
		Type:              gethTypes.LegacyTxType,
		CumulativeGasUsed: res.GasConsumed,
		GasUsed:           res.GasConsumed,
		Logs:              res.Logs,
	}
	if res.Failed {
		receipt.Status = gethTypes.ReceiptStatusFailed
	} else {
		receipt.Status = gethTypes.ReceiptStatusSuccessful
	}
	receipt.Bloom = gethTypes.CreateBloom(gethTypes.Receipts{receipt})
	return receipt
}
