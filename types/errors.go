package types

import (
	"errors"
	"fmt"
)

var (
	// ErrForkNotFound is returned when a fork identity has no registered
	// handle.
	ErrForkNotFound = errors.New("fork not found")

	// ErrForkAlreadyRegistered is returned on a duplicate registration of
	// a fork identity.
	ErrForkAlreadyRegistered = errors.New("fork already registered")

	// ErrNoActiveFork is returned when a call is executed before any
	// fork has been selected.
	ErrNoActiveFork = errors.New("no active fork")

	// ErrNegativeValue is returned when a call carries a negative value.
	ErrNegativeValue = errors.New("negative call value")
)

// InvalidAddressError is returned when a supplied address is not
// exactly 20 bytes. It is caught before any engine interaction.
type InvalidAddressError struct {
	have int
}

// NewInvalidAddressError constructs an InvalidAddressError for the
// given raw input.
func NewInvalidAddressError(inp []byte) InvalidAddressError {
	return InvalidAddressError{have: len(inp)}
}

func (e InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address: got %d bytes, want %d", e.have, AddressLength)
}

// IsInvalidAddressError returns true if the error or any error it wraps
// is an InvalidAddressError.
func IsInvalidAddressError(err error) bool {
	return errors.As(err, &InvalidAddressError{})
}

// ProvisionError is returned when snapshot creation for a fork failed.
// It is fatal for that create-or-select call; the caller may retry.
type ProvisionError struct {
	ForkID ForkID
	err    error
}

// NewProvisionError constructs a ProvisionError wrapping the cause.
func NewProvisionError(id ForkID, err error) ProvisionError {
	return ProvisionError{ForkID: id, err: err}
}

func (e ProvisionError) Error() string {
	return fmt.Sprintf("provisioning fork %s: %v", e.ForkID, e.err)
}

func (e ProvisionError) Unwrap() error {
	return e.err
}

// IsProvisionError returns true if the error or any error it wraps is a
// ProvisionError.
func IsProvisionError(err error) bool {
	return errors.As(err, &ProvisionError{})
}

// SelectError is returned when the engine refused to activate an
// existing handle.
type SelectError struct {
	Handle ForkHandle
	err    error
}

// NewSelectError constructs a SelectError wrapping the cause.
func NewSelectError(handle ForkHandle, err error) SelectError {
	return SelectError{Handle: handle, err: err}
}

func (e SelectError) Error() string {
	return fmt.Sprintf("selecting %s: %v", e.Handle, e.err)
}

func (e SelectError) Unwrap() error {
	return e.err
}

// IsSelectError returns true if the error or any error it wraps is a
// SelectError.
func IsSelectError(err error) bool {
	return errors.As(err, &SelectError{})
}

// EngineError is returned when execution faulted at the engine level
// (failed prechecks, broken state reads). It is distinct from an
// application-level revert, which is reported inside a Result.
type EngineError struct {
	err error
}

// NewEngineError constructs an EngineError wrapping the cause.
func NewEngineError(err error) EngineError {
	return EngineError{err: err}
}

func (e EngineError) Error() string {
	return fmt.Sprintf("engine error: %v", e.err)
}

func (e EngineError) Unwrap() error {
	return e.err
}

// IsEngineError returns true if the error or any error it wraps is an
// EngineError.
func IsEngineError(err error) bool {
	return errors.As(err, &EngineError{})
}

// TypedDecodeError is returned when a raw result could not be decoded
// into the declared return shape of a typed call. It carries the raw
// result for diagnosis; it must not be mistaken for a successful call.
type TypedDecodeError struct {
	Method string
	Raw    *Result
	err    error
}

// NewTypedDecodeError constructs a TypedDecodeError for the given
// method, keeping the raw result it failed to decode.
func NewTypedDecodeError(method string, raw *Result, err error) TypedDecodeError {
	return TypedDecodeError{Method: method, Raw: raw, err: err}
}

func (e TypedDecodeError) Error() string {
	return fmt.Sprintf("decoding return of %q: %v", e.Method, e.err)
}

func (e TypedDecodeError) Unwrap() error {
	return e.err
}

// IsTypedDecodeError returns true if the error or any error it wraps is
// a TypedDecodeError.
func IsTypedDecodeError(err error) bool {
	return errors.As(err, &TypedDecodeError{})
}
