package state

import (
	"fmt"
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/forkvm/forkvm/types"
)

// DeltaView captures changes to a state layer without mutating the
// parent view. Reads fall through to the parent for anything the delta
// has not touched.
//
// A DeltaView serves two roles: as the per-call write set stacked by
// the StateDB, and as the long-lived committed overlay a snapshot keeps
// on top of its remote base.
type DeltaView struct {
	parent types.ReadOnlyView

	created    map[gethCommon.Address]struct{}
	destructed map[gethCommon.Address]struct{}
	deleted    map[gethCommon.Address]struct{}

	balances   map[gethCommon.Address]*big.Int
	nonces     map[gethCommon.Address]uint64
	codes      map[gethCommon.Address][]byte
	codeHashes map[gethCommon.Address]gethCommon.Hash

	slots     map[types.SlotAddress]gethCommon.Hash
	transient map[types.SlotAddress]gethCommon.Hash

	accessListAddresses map[gethCommon.Address]struct{}
	accessListSlots     map[types.SlotAddress]struct{}

	logs      []*gethTypes.Log
	preimages map[gethCommon.Hash][]byte
	refund    uint64
}

var _ types.HotView = &DeltaView{}

// NewDeltaView constructs a new delta view over the given parent.
func NewDeltaView(parent types.ReadOnlyView) *DeltaView {
	return &DeltaView{
		parent: parent,

		created:    make(map[gethCommon.Address]struct{}),
		destructed: make(map[gethCommon.Address]struct{}),
		deleted:    make(map[gethCommon.Address]struct{}),

		balances:   make(map[gethCommon.Address]*big.Int),
		nonces:     make(map[gethCommon.Address]uint64),
		codes:      make(map[gethCommon.Address][]byte),
		codeHashes: make(map[gethCommon.Address]gethCommon.Hash),

		slots:     make(map[types.SlotAddress]gethCommon.Hash),
		transient: make(map[types.SlotAddress]gethCommon.Hash),

		accessListAddresses: make(map[gethCommon.Address]struct{}),
		accessListSlots:     make(map[types.SlotAddress]struct{}),

		preimages: make(map[gethCommon.Hash][]byte),
		refund:    parent.GetRefund(),
	}
}

// Exist returns true if the address exists in this view or the parent.
func (d *DeltaView) Exist(addr gethCommon.Address) (bool, error) {
	if _, ok := d.created[addr]; ok {
		return true, nil
	}
	// selfdestructed accounts still exist until end of transaction
	if _, ok := d.destructed[addr]; ok {
		return true, nil
	}
	if _, ok := d.deleted[addr]; ok {
		return false, nil
	}
	return d.parent.Exist(addr)
}

// IsCreated returns true if the address was created in this view or an
// ancestor view.
func (d *DeltaView) IsCreated(addr gethCommon.Address) bool {
	if _, ok := d.created[addr]; ok {
		return true
	}
	if _, ok := d.deleted[addr]; ok {
		return false
	}
	return d.parent.IsCreated(addr)
}

// CreateAccount creates a new account at the given address, carrying
// over any balance the address already holds.
func (d *DeltaView) CreateAccount(addr gethCommon.Address) error {
	bal, err := d.GetBalance(addr)
	if err != nil {
		return err
	}
	delete(d.deleted, addr)
	d.created[addr] = struct{}{}
	d.balances[addr] = bal
	d.nonces[addr] = 0
	d.codes[addr] = nil
	d.codeHashes[addr] = gethTypes.EmptyCodeHash
	return nil
}

// SelfDestruct flags the address for destruction and zeros its balance.
// The account remains readable until the transaction is folded into the
// committed layer.
func (d *DeltaView) SelfDestruct(addr gethCommon.Address) error {
	found, err := d.Exist(addr)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	d.destructed[addr] = struct{}{}
	d.balances[addr] = new(big.Int)
	return nil
}

// HasSelfDestructed returns true if the address was flagged for
// destruction in this view or an ancestor view.
func (d *DeltaView) HasSelfDestructed(addr gethCommon.Address) bool {
	if _, ok := d.destructed[addr]; ok {
		return true
	}
	return d.parent.HasSelfDestructed(addr)
}

// GetBalance returns the balance of the address.
func (d *DeltaView) GetBalance(addr gethCommon.Address) (*big.Int, error) {
	if bal, ok := d.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	if _, ok := d.deleted[addr]; ok {
		return new(big.Int), nil
	}
	return d.parent.GetBalance(addr)
}

// AddBalance adds the amount to the address balance.
func (d *DeltaView) AddBalance(addr gethCommon.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("adding negative amount %v to %s", amount, addr)
	}
	cur, err := d.GetBalance(addr)
	if err != nil {
		return err
	}
	d.balances[addr] = cur.Add(cur, amount)
	return nil
}

// SubBalance subtracts the amount from the address balance; going below
// zero is an error.
func (d *DeltaView) SubBalance(addr gethCommon.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("subtracting negative amount %v from %s", amount, addr)
	}
	cur, err := d.GetBalance(addr)
	if err != nil {
		return err
	}
	if cur.Cmp(amount) < 0 {
		return fmt.Errorf("balance of %s would go negative", addr)
	}
	d.balances[addr] = cur.Sub(cur, amount)
	return nil
}

// GetNonce returns the nonce of the address.
func (d *DeltaView) GetNonce(addr gethCommon.Address) (uint64, error) {
	if nonce, ok := d.nonces[addr]; ok {
		return nonce, nil
	}
	if _, ok := d.deleted[addr]; ok {
		return 0, nil
	}
	return d.parent.GetNonce(addr)
}

// SetNonce sets the nonce of the address.
func (d *DeltaView) SetNonce(addr gethCommon.Address, nonce uint64) error {
	d.nonces[addr] = nonce
	return nil
}

// GetCode returns the code of the address.
func (d *DeltaView) GetCode(addr gethCommon.Address) ([]byte, error) {
	if code, ok := d.codes[addr]; ok {
		return code, nil
	}
	if _, ok := d.deleted[addr]; ok {
		return nil, nil
	}
	return d.parent.GetCode(addr)
}

// GetCodeHash returns the code hash of the address; the zero hash for
// an account that does not exist.
func (d *DeltaView) GetCodeHash(addr gethCommon.Address) (gethCommon.Hash, error) {
	if hash, ok := d.codeHashes[addr]; ok {
		return hash, nil
	}
	if _, ok := d.deleted[addr]; ok {
		return gethCommon.Hash{}, nil
	}
	return d.parent.GetCodeHash(addr)
}

// GetCodeSize returns the length of the code of the address.
func (d *DeltaView) GetCodeSize(addr gethCommon.Address) (int, error) {
	code, err := d.GetCode(addr)
	return len(code), err
}

// SetCode sets the code of the address.
func (d *DeltaView) SetCode(addr gethCommon.Address, code []byte) error {
	d.codes[addr] = code
	if len(code) == 0 {
		d.codeHashes[addr] = gethTypes.EmptyCodeHash
	} else {
		d.codeHashes[addr] = gethCrypto.Keccak256Hash(code)
	}
	return nil
}

// GetState returns the value of the storage slot.
func (d *DeltaView) GetState(sk types.SlotAddress) (gethCommon.Hash, error) {
	if value, ok := d.slots[sk]; ok {
		return value, nil
	}
	if _, ok := d.deleted[sk.Address]; ok {
		return gethCommon.Hash{}, nil
	}
	return d.parent.GetState(sk)
}

// SetState sets the value of the storage slot.
func (d *DeltaView) SetState(sk types.SlotAddress, value gethCommon.Hash) error {
	d.slots[sk] = value
	return nil
}

// GetTransientState returns the value of the transient storage slot.
func (d *DeltaView) GetTransientState(sk types.SlotAddress) gethCommon.Hash {
	if value, ok := d.transient[sk]; ok {
		return value
	}
	return d.parent.GetTransientState(sk)
}

// SetTransientState sets the value of the transient storage slot.
func (d *DeltaView) SetTransientState(sk types.SlotAddress, value gethCommon.Hash) {
	d.transient[sk] = value
}

// GetRefund returns the current refund counter.
func (d *DeltaView) GetRefund() uint64 {
	return d.refund
}

// AddRefund adds the amount to the refund counter.
func (d *DeltaView) AddRefund(amount uint64) error {
	d.refund += amount
	return nil
}

// SubRefund subtracts the amount from the refund counter; going below
// zero is an error.
func (d *DeltaView) SubRefund(amount uint64) error {
	if amount > d.refund {
		return fmt.Errorf("refund counter would go below zero (%d > %d)", amount, d.refund)
	}
	d.refund -= amount
	return nil
}

// AddressInAccessList returns true if the address is warm.
func (d *DeltaView) AddressInAccessList(addr gethCommon.Address) bool {
	if _, ok := d.accessListAddresses[addr]; ok {
		return true
	}
	return d.parent.AddressInAccessList(addr)
}

// AddAddressToAccessList marks the address warm.
func (d *DeltaView) AddAddressToAccessList(addr gethCommon.Address) {
	d.accessListAddresses[addr] = struct{}{}
}

// SlotInAccessList reports whether the slot (and its address) is warm.
func (d *DeltaView) SlotInAccessList(sk types.SlotAddress) (addressOk bool, slotOk bool) {
	addressOk = d.AddressInAccessList(sk.Address)
	if _, ok := d.accessListSlots[sk]; ok {
		return addressOk, true
	}
	_, slotOk = d.parent.SlotInAccessList(sk)
	return addressOk, slotOk
}

// AddSlotToAccessList marks the slot warm.
func (d *DeltaView) AddSlotToAccessList(sk types.SlotAddress) {
	d.accessListSlots[sk] = struct{}{}
}

// AddLog appends a log emitted during execution.
func (d *DeltaView) AddLog(log *gethTypes.Log) {
	d.logs = append(d.logs, log)
}

// Logs returns the logs collected in this view.
func (d *DeltaView) Logs() []*gethTypes.Log {
	return d.logs
}

// AddPreimage records the preimage of a hashed value.
func (d *DeltaView) AddPreimage(hash gethCommon.Hash, preimage []byte) {
	cp := make([]byte, len(preimage))
	copy(cp, preimage)
	d.preimages[hash] = cp
}

// DeleteAccount applies a destruction to this view: the account and all
// its storage disappear for subsequent reads.
func (d *DeltaView) DeleteAccount(addr gethCommon.Address) {
	delete(d.created, addr)
	delete(d.destructed, addr)
	d.deleted[addr] = struct{}{}
	d.balances[addr] = new(big.Int)
	d.nonces[addr] = 0
	d.codes[addr] = nil
	d.codeHashes[addr] = gethCommon.Hash{}
	for sk := range d.slots {
		if sk.Address == addr {
			delete(d.slots, sk)
		}
	}
}

// MergeInto folds the persistent part of this delta (accounts, code,
// slots) into dst. Transaction-scoped content (transient storage,
// access lists, refunds, logs) is deliberately not carried.
func (d *DeltaView) MergeInto(dst *DeltaView) {
	for addr := range d.destructed {
		if _, recreated := d.created[addr]; recreated {
			continue
		}
		dst.DeleteAccount(addr)
	}
	for addr := range d.created {
		delete(dst.deleted, addr)
		dst.created[addr] = struct{}{}
	}
	for addr, bal := range d.balances {
		dst.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, nonce := range d.nonces {
		dst.nonces[addr] = nonce
	}
	for addr, code := range d.codes {
		dst.codes[addr] = code
		dst.codeHashes[addr] = d.codeHashes[addr]
	}
	for sk, value := range d.slots {
		if _, gone := d.destructed[sk.Address]; gone {
			continue
		}
		dst.slots[sk] = value
	}
}

// createdLocally reports whether the address was created in this very
// view, not in an ancestor.
func (d *DeltaView) createdLocally(addr gethCommon.Address) bool {
	_, ok := d.created[addr]
	return ok
}
