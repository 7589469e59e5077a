package types_test

import (
	"testing"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/forkvm/forkvm/types"
)

func TestAddressFromBytes(t *testing.T) {
	t.Parallel()

	t.Run("exact length round trips", func(t *testing.T) {
		raw := make([]byte, types.AddressLength)
		for i := range raw {
			raw[i] = byte(i + 1)
		}
		addr, err := types.AddressFromBytes(raw)
		require.NoError(t, err)
		require.Equal(t, raw, addr.Bytes())
		require.Equal(t, gethCommon.BytesToAddress(raw), addr.ToCommon())
	})

	t.Run("wrong lengths are rejected", func(t *testing.T) {
		for _, size := range []int{0, 1, 19, 21, 32} {
			_, err := types.AddressFromBytes(make([]byte, size))
			require.Error(t, err)
			require.True(t, types.IsInvalidAddressError(err))
		}
	})

	t.Run("nil input is rejected, not a panic", func(t *testing.T) {
		_, err := types.AddressFromBytes(nil)
		require.True(t, types.IsInvalidAddressError(err))
	})
}

func TestAddressFromString(t *testing.T) {
	t.Parallel()

	addr, err := types.AddressFromString("0x000000000000000000000000000000000000dEaD")
	require.NoError(t, err)
	require.Equal(t, "0x000000000000000000000000000000000000dEaD", addr.String())

	_, err = types.AddressFromString("0xdead")
	require.True(t, types.IsInvalidAddressError(err))
}
