package types

import (
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
)

// SlotAddress points to a specific storage slot of an account.
type SlotAddress struct {
	Address gethCommon.Address
	Key     gethCommon.Hash
}

// ReadOnlyView provides read access to a layer of EVM state.
//
// Methods that can reach a backing store return explicit errors;
// purely transactional queries (refunds, access lists, transient
// storage) cannot fail and do not.
type ReadOnlyView interface {
	Exist(addr gethCommon.Address) (bool, error)
	IsCreated(addr gethCommon.Address) bool
	HasSelfDestructed(addr gethCommon.Address) bool

	GetBalance(addr gethCommon.Address) (*big.Int, error)
	GetNonce(addr gethCommon.Address) (uint64, error)
	GetCode(addr gethCommon.Address) ([]byte, error)
	GetCodeHash(addr gethCommon.Address) (gethCommon.Hash, error)
	GetCodeSize(addr gethCommon.Address) (int, error)

	GetState(sk SlotAddress) (gethCommon.Hash, error)
	GetTransientState(sk SlotAddress) gethCommon.Hash

	GetRefund() uint64
	AddressInAccessList(addr gethCommon.Address) bool
	SlotInAccessList(sk SlotAddress) (addressOk bool, slotOk bool)
}

// HotView is a mutable layer of EVM state.
type HotView interface {
	ReadOnlyView

	CreateAccount(addr gethCommon.Address) error
	SelfDestruct(addr gethCommon.Address) error

	AddBalance(addr gethCommon.Address, amount *big.Int) error
	SubBalance(addr gethCommon.Address, amount *big.Int) error
	SetNonce(addr gethCommon.Address, nonce uint64) error
	SetCode(addr gethCommon.Address, code []byte) error

	SetState(sk SlotAddress, value gethCommon.Hash) error
	SetTransientState(sk SlotAddress, value gethCommon.Hash)

	AddRefund(amount uint64) error
	SubRefund(amount uint64) error
	AddAddressToAccessList(addr gethCommon.Address)
	AddSlotToAccessList(sk SlotAddress)

	AddLog(log *gethTypes.Log)
	AddPreimage(hash gethCommon.Hash, preimage []byte)
}
