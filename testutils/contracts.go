package testutils

// Hand-assembled runtime bytecodes for tiny test contracts. None of
// them inspect the function selector; the ABI shape only matters to the
// typed adapter on the caller side.
var (
	// BalanceReaderCode returns the balance of the address given as the
	// first call argument.
	//
	//   PUSH1 0x04 CALLDATALOAD BALANCE
	//   PUSH1 0x00 MSTORE
	//   PUSH1 0x20 PUSH1 0x00 RETURN
	BalanceReaderCode = []byte{
		0x60, 0x04, 0x35, 0x31,
		0x60, 0x00, 0x52,
		0x60, 0x20, 0x60, 0x00, 0xf3,
	}

	// StorageReaderCode returns the value of the storage slot whose key
	// is the first call argument.
	//
	//   PUSH1 0x04 CALLDATALOAD SLOAD
	//   PUSH1 0x00 MSTORE
	//   PUSH1 0x20 PUSH1 0x00 RETURN
	StorageReaderCode = []byte{
		0x60, 0x04, 0x35, 0x54,
		0x60, 0x00, 0x52,
		0x60, 0x20, 0x60, 0x00, 0xf3,
	}

	// StorageWriterCode stores the second call argument under the slot
	// key given as the first.
	//
	//   PUSH1 0x24 CALLDATALOAD
	//   PUSH1 0x04 CALLDATALOAD
	//   SSTORE STOP
	StorageWriterCode = []byte{
		0x60, 0x24, 0x35,
		0x60, 0x04, 0x35,
		0x55, 0x00,
	}

	// KVStoreCode branches on calldata size: two-argument calls store
	// the second argument under the slot keyed by the first, one-argument
	// calls return the value of that slot. The read path matches
	// StorageReaderABI, the write path StorageWriterABI.
	//
	//   CALLDATASIZE PUSH1 0x24 LT PUSH1 0x13 JUMPI
	//   PUSH1 0x04 CALLDATALOAD SLOAD
	//   PUSH1 0x00 MSTORE
	//   PUSH1 0x20 PUSH1 0x00 RETURN
	//   JUMPDEST
	//   PUSH1 0x24 CALLDATALOAD
	//   PUSH1 0x04 CALLDATALOAD
	//   SSTORE STOP
	KVStoreCode = []byte{
		0x36, 0x60, 0x24, 0x10, 0x60, 0x13, 0x57,
		0x60, 0x04, 0x35, 0x54,
		0x60, 0x00, 0x52,
		0x60, 0x20, 0x60, 0x00, 0xf3,
		0x5b,
		0x60, 0x24, 0x35,
		0x60, 0x04, 0x35,
		0x55, 0x00,
	}

	// BlockNumberCode returns the block number the call observes.
	//
	//   NUMBER
	//   PUSH1 0x00 MSTORE
	//   PUSH1 0x20 PUSH1 0x00 RETURN
	BlockNumberCode = []byte{
		0x43,
		0x60, 0x00, 0x52,
		0x60, 0x20, 0x60, 0x00, 0xf3,
	}

	// RevertingCode reverts with empty data.
	//
	//   PUSH1 0x00 PUSH1 0x00 REVERT
	RevertingCode = []byte{
		0x60, 0x00, 0x60, 0x00, 0xfd,
	}

	// EmittingCode emits one empty LOG0 and stops.
	//
	//   PUSH1 0x00 PUSH1 0x00 LOG0 STOP
	EmittingCode = []byte{
		0x60, 0x00, 0x60, 0x00, 0xa0, 0x00,
	}
)

// BalanceReaderABI matches BalanceReaderCode for typed calls.
const BalanceReaderABI = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "who", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

// StorageReaderABI matches StorageReaderCode for typed calls.
const StorageReaderABI = `[
	{
		"name": "read",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "key", "type": "uint256"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

// StorageWriterABI matches StorageWriterCode for typed writes.
const StorageWriterABI = `[
	{
		"name": "write",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "key", "type": "uint256"},
			{"name": "value", "type": "uint256"}
		],
		"outputs": []
	}
]`
