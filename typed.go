package forkvm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/forkvm/forkvm/types"
)

// TypedRequest is a function call defined by an ABI signature rather
// than opaque payload bytes.
type TypedRequest struct {
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// NewTypedRequest constructs a typed request for a method of the given
// ABI.
func NewTypedRequest(spec abi.ABI, method string, args ...interface{}) TypedRequest {
	return TypedRequest{ABI: spec, Method: method, Args: args}
}

// ParseABI parses a JSON ABI definition.
func ParseABI(definition string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(definition))
}

// Encode packs the request into call payload bytes.
func (r TypedRequest) Encode() ([]byte, error) {
	payload, err := r.ABI.Pack(r.Method, r.Args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", r.Method, err)
	}
	return payload, nil
}

// TypedResult pairs the raw call result with the value decoded per the
// request's declared return shape.
type TypedResult[T any] struct {
	Raw     *types.Result
	Decoded T
}

// TypedCall executes a non-committing typed call: the request is
// encoded per its signature, dispatched through Session.Call, and the
// return data decoded into T.
//
// A decode failure yields a TypedDecodeError carrying the raw result;
// it is never passed off as a successful call. A reverted call skips
// decoding: the raw result is returned with the zero value of T, since
// revert data does not have the declared return shape.
func TypedCall[T any](ctx context.Context, s *Session, from, to []byte, req TypedRequest) (*TypedResult[T], error) {
	return typedExecute[T](ctx, req, func(payload []byte) (*types.Result, error) {
		return s.Call(ctx, from, to, payload)
	})
}

// TypedWrite is TypedCall's committing counterpart: it dispatches
// through Session.Write, transferring value alongside the call.
func TypedWrite[T any](ctx context.Context, s *Session, from, to []byte, req TypedRequest, value *big.Int) (*TypedResult[T], error) {
	return typedExecute[T](ctx, req, func(payload []byte) (*types.Result, error) {
		return s.Write(ctx, from, to, payload, value)
	})
}

// typedExecute keeps call and write behaviorally identical except for
// the dispatch step: encode, delegate, decode.
func typedExecute[T any](
	_ context.Context,
	req TypedRequest,
	dispatch func(payload []byte) (*types.Result, error),
) (*TypedResult[T], error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, err
	}
	res, err := dispatch(payload)
	if err != nil {
		return nil, err
	}
	out := &TypedResult[T]{Raw: res}
	if res.Failed {
		return out, nil
	}
	if err := req.ABI.UnpackIntoInterface(&out.Decoded, req.Method, res.ReturnedValue); err != nil {
		return nil, types.NewTypedDecodeError(req.Method, res, err)
	}
	return out, nil
}
