package types

import (
	"fmt"
	"math/big"
)

// BlockHeight points at either a specific block number or the head of
// the chain. The zero value means "latest".
//
// A pinned height and "latest" are distinct identities even when the
// chain head currently sits at that very number; they are never
// coalesced. The type is comparable and safe to use as a map key.
type BlockHeight struct {
	number uint64
	pinned bool
}

// PinnedHeight returns a height pinned to the given block number.
func PinnedHeight(number uint64) BlockHeight {
	return BlockHeight{number: number, pinned: true}
}

// LatestHeight returns the height tracking the chain head.
func LatestHeight() BlockHeight {
	return BlockHeight{}
}

// Pinned returns the pinned block number, and whether the height is
// pinned at all.
func (h BlockHeight) Pinned() (uint64, bool) {
	return h.number, h.pinned
}

// IsLatest returns true if the height tracks the chain head.
func (h BlockHeight) IsLatest() bool {
	return !h.pinned
}

// BigInt returns the height in the form remote queries expect:
// the block number for a pinned height, nil for latest.
func (h BlockHeight) BigInt() *big.Int {
	if !h.pinned {
		return nil
	}
	return new(big.Int).SetUint64(h.number)
}

func (h BlockHeight) String() string {
	if !h.pinned {
		return "latest"
	}
	return fmt.Sprintf("%d", h.number)
}

// ForkID is the logical identity of a fork: the endpoint the state is
// sourced from plus the height it is pinned to. Two ForkIDs are equal
// iff both fields are equal.
type ForkID struct {
	Endpoint string
	Height   BlockHeight
}

// NewForkID constructs a fork identity.
func NewForkID(endpoint string, height BlockHeight) ForkID {
	return ForkID{Endpoint: endpoint, Height: height}
}

func (id ForkID) String() string {
	return fmt.Sprintf("%s@%s", id.Endpoint, id.Height)
}

// ForkHandle is an opaque reference to a materialized snapshot. Handles
// are issued by the engine arena starting at 1 and are never recycled
// within a session's lifetime.
type ForkHandle uint64

// NoFork is the zero handle; it never refers to a snapshot.
const NoFork ForkHandle = 0

// Valid returns true if the handle refers to a snapshot.
func (h ForkHandle) Valid() bool {
	return h != NoFork
}

func (h ForkHandle) String() string {
	return fmt.Sprintf("fork-%d", uint64(h))
}
