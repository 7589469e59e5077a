package types

import (
	gethCommon "github.com/ethereum/go-ethereum/common"
)

// AddressLength holds the number of bytes of an EVM address.
const AddressLength = gethCommon.AddressLength

// Address is an EVM-compatible address, always exactly 20 bytes.
type Address gethCommon.Address

// EmptyAddress is an address of all zeros.
var EmptyAddress = Address{}

// NewAddress constructs a new address from a geth address.
func NewAddress(addr gethCommon.Address) Address {
	return Address(addr)
}

// AddressFromBytes constructs an address from a byte slice.
//
// It returns an InvalidAddressError for any input that is not exactly
// AddressLength bytes; it never truncates or pads.
func AddressFromBytes(inp []byte) (Address, error) {
	if len(inp) != AddressLength {
		return EmptyAddress, NewInvalidAddressError(inp)
	}
	var a Address
	copy(a[:], inp)
	return a, nil
}

// AddressFromString constructs an address from a hex string (with or
// without the 0x prefix). The decoded value must be exactly 20 bytes.
func AddressFromString(inp string) (Address, error) {
	if !gethCommon.IsHexAddress(inp) {
		return EmptyAddress, NewInvalidAddressError([]byte(inp))
	}
	return Address(gethCommon.HexToAddress(inp)), nil
}

// ToCommon returns the geth-type address.
func (a Address) ToCommon() gethCommon.Address {
	return gethCommon.Address(a)
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	return a.ToCommon().Bytes()
}

// String returns the hex encoding of the address.
func (a Address) String() string {
	return a.ToCommon().Hex()
}
