package state

import (
	"fmt"
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	gethVM "github.com/ethereum/go-ethereum/core/vm"
	gethParams "github.com/ethereum/go-ethereum/params"

	"github.com/forkvm/forkvm/types"
)

// StateDB implements the geth vm.StateDB interface on top of a stack of
// delta views rooted at a committed view.
//
// The geth interface does not allow errors to be returned from state
// operations, so any error hit by the underlying views is withheld and
// surfaced through Error(); the engine must check it after execution
// and before folding changes into the snapshot.
type StateDB struct {
	base      types.ReadOnlyView
	views     []*DeltaView
	cachedErr error
}

var _ gethVM.StateDB = &StateDB{}

// NewStateDB constructs a StateDB over the given committed view.
func NewStateDB(base types.ReadOnlyView) *StateDB {
	return &StateDB{
		base:  base,
		views: []*DeltaView{NewDeltaView(base)},
	}
}

// Error returns the first error hit during state interactions, if any.
func (db *StateDB) Error() error {
	return db.cachedErr
}

func (db *StateDB) top() *DeltaView {
	return db.views[len(db.views)-1]
}

func (db *StateDB) handleError(err error) {
	if err != nil && db.cachedErr == nil {
		db.cachedErr = err
	}
}

// Snapshot opens a new nested view and returns an id to revert to.
func (db *StateDB) Snapshot() int {
	id := len(db.views)
	db.views = append(db.views, NewDeltaView(db.top()))
	return id
}

// RevertToSnapshot discards every view opened at or after the given id.
func (db *StateDB) RevertToSnapshot(id int) {
	if id < 1 || id > len(db.views) {
		db.handleError(fmt.Errorf("invalid snapshot id %d (have %d views)", id, len(db.views)))
		return
	}
	db.views = db.views[:id]
}

func (db *StateDB) CreateAccount(addr gethCommon.Address) {
	db.handleError(db.top().CreateAccount(addr))
}

func (db *StateDB) Exist(addr gethCommon.Address) bool {
	found, err := db.top().Exist(addr)
	db.handleError(err)
	return found
}

// Empty returns true if the account has no balance, no nonce and no
// code; nonexistent accounts are empty.
func (db *StateDB) Empty(addr gethCommon.Address) bool {
	bal := db.GetBalance(addr)
	nonce := db.GetNonce(addr)
	size, err := db.top().GetCodeSize(addr)
	db.handleError(err)
	return bal.Sign() == 0 && nonce == 0 && size == 0
}

func (db *StateDB) GetBalance(addr gethCommon.Address) *big.Int {
	bal, err := db.top().GetBalance(addr)
	db.handleError(err)
	if bal == nil {
		return new(big.Int)
	}
	return bal
}

func (db *StateDB) AddBalance(addr gethCommon.Address, amount *big.Int) {
	db.handleError(db.top().AddBalance(addr, amount))
}

func (db *StateDB) SubBalance(addr gethCommon.Address, amount *big.Int) {
	db.handleError(db.top().SubBalance(addr, amount))
}

func (db *StateDB) GetNonce(addr gethCommon.Address) uint64 {
	nonce, err := db.top().GetNonce(addr)
	db.handleError(err)
	return nonce
}

func (db *StateDB) SetNonce(addr gethCommon.Address, nonce uint64) {
	db.handleError(db.top().SetNonce(addr, nonce))
}

func (db *StateDB) GetCodeHash(addr gethCommon.Address) gethCommon.Hash {
	hash, err := db.top().GetCodeHash(addr)
	db.handleError(err)
	return hash
}

func (db *StateDB) GetCode(addr gethCommon.Address) []byte {
	code, err := db.top().GetCode(addr)
	db.handleError(err)
	return code
}

func (db *StateDB) SetCode(addr gethCommon.Address, code []byte) {
	db.handleError(db.top().SetCode(addr, code))
}

func (db *StateDB) GetCodeSize(addr gethCommon.Address) int {
	size, err := db.top().GetCodeSize(addr)
	db.handleError(err)
	return size
}

func (db *StateDB) AddRefund(amount uint64) {
	db.handleError(db.top().AddRefund(amount))
}

func (db *StateDB) SubRefund(amount uint64) {
	db.handleError(db.top().SubRefund(amount))
}

func (db *StateDB) GetRefund() uint64 {
	return db.top().GetRefund()
}

// GetCommittedState reads the slot as it was before this transaction
// started, bypassing every uncommitted view.
func (db *StateDB) GetCommittedState(addr gethCommon.Address, key gethCommon.Hash) gethCommon.Hash {
	value, err := db.base.GetState(types.SlotAddress{Address: addr, Key: key})
	db.handleError(err)
	return value
}

func (db *StateDB) GetState(addr gethCommon.Address, key gethCommon.Hash) gethCommon.Hash {
	value, err := db.top().GetState(types.SlotAddress{Address: addr, Key: key})
	db.handleError(err)
	return value
}

func (db *StateDB) SetState(addr gethCommon.Address, key gethCommon.Hash, value gethCommon.Hash) {
	db.handleError(db.top().SetState(types.SlotAddress{Address: addr, Key: key}, value))
}

func (db *StateDB) GetTransientState(addr gethCommon.Address, key gethCommon.Hash) gethCommon.Hash {
	return db.top().GetTransientState(types.SlotAddress{Address: addr, Key: key})
}

func (db *StateDB) SetTransientState(addr gethCommon.Address, key, value gethCommon.Hash) {
	db.top().SetTransientState(types.SlotAddress{Address: addr, Key: key}, value)
}

func (db *StateDB) SelfDestruct(addr gethCommon.Address) {
	db.handleError(db.top().SelfDestruct(addr))
}

func (db *StateDB) HasSelfDestructed(addr gethCommon.Address) bool {
	return db.top().HasSelfDestructed(addr)
}

// Selfdestruct6780 destructs the account only if it was created within
// the current transaction (EIP-6780).
func (db *StateDB) Selfdestruct6780(addr gethCommon.Address) {
	for _, view := range db.views {
		if view.createdLocally(addr) {
			db.SelfDestruct(addr)
			return
		}
	}
}

func (db *StateDB) AddressInAccessList(addr gethCommon.Address) bool {
	return db.top().AddressInAccessList(addr)
}

func (db *StateDB) SlotInAccessList(addr gethCommon.Address, key gethCommon.Hash) (addressOk bool, slotOk bool) {
	return db.top().SlotInAccessList(types.SlotAddress{Address: addr, Key: key})
}

func (db *StateDB) AddAddressToAccessList(addr gethCommon.Address) {
	db.top().AddAddressToAccessList(addr)
}

func (db *StateDB) AddSlotToAccessList(addr gethCommon.Address, key gethCommon.Hash) {
	db.top().AddSlotToAccessList(types.SlotAddress{Address: addr, Key: key})
}

// Prepare warms up the access list for the transaction ahead (EIP-2929,
// EIP-3651).
func (db *StateDB) Prepare(
	rules gethParams.Rules,
	sender gethCommon.Address,
	coinbase gethCommon.Address,
	dest *gethCommon.Address,
	precompiles []gethCommon.Address,
	txAccesses gethTypes.AccessList,
) {
	if !rules.IsBerlin {
		return
	}
	db.AddAddressToAccessList(sender)
	if dest != nil {
		db.AddAddressToAccessList(*dest)
	}
	for _, addr := range precompiles {
		db.AddAddressToAccessList(addr)
	}
	for _, el := range txAccesses {
		db.AddAddressToAccessList(el.Address)
		for _, key := range el.StorageKeys {
			db.AddSlotToAccessList(el.Address, key)
		}
	}
	if rules.IsShanghai {
		db.AddAddressToAccessList(coinbase)
	}
}

func (db *StateDB) AddLog(log *gethTypes.Log) {
	db.top().AddLog(log)
}

func (db *StateDB) AddPreimage(hash gethCommon.Hash, preimage []byte) {
	db.top().AddPreimage(hash, preimage)
}

// Logs returns the logs collected across all surviving views, stamped
// with the given block number, transaction hash and index.
func (db *StateDB) Logs(blockNumber uint64, txHash gethCommon.Hash, txIndex uint) []*gethTypes.Log {
	var all []*gethTypes.Log
	for _, view := range db.views {
		all = append(all, view.Logs()...)
	}
	for i, log := range all {
		log.BlockNumber = blockNumber
		log.TxHash = txHash
		log.TxIndex = txIndex
		log.Index = uint(i)
	}
	return all
}

// MergeInto folds every surviving view, oldest first, into dst. It
// refuses to fold when an error was withheld during execution.
func (db *StateDB) MergeInto(dst *DeltaView) error {
	if db.cachedErr != nil {
		return fmt.Errorf("folding dirty state: %w", db.cachedErr)
	}
	for _, view := range db.views {
		view.MergeInto(dst)
	}
	return nil
}
