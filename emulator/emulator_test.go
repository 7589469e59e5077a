package emulator_test

import (
	"context"
	"math/big"
	"testing"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/forkvm/forkvm/emulator"
	"github.com/forkvm/forkvm/emulator/state"
	"github.com/forkvm/forkvm/testutils"
	"github.com/forkvm/forkvm/types"
)

func adoptChain(t *testing.T, em *emulator.Emulator, chain *testutils.TestChain, height uint64) types.ForkHandle {
	t.Helper()
	remote, err := state.NewRemoteView(chain, "test://chain", height)
	require.NoError(t, err)
	return em.Adopt(remote, types.NewDefaultChainContext(chain.ID, height))
}

// balanceCalldata builds raw calldata for BalanceReaderCode: a dummy
// selector followed by the ABI-padded address.
func balanceCalldata(addr gethCommon.Address) []byte {
	data := make([]byte, 4+32)
	copy(data[4+12:], addr.Bytes())
	return data
}

func readBalance(t *testing.T, em *emulator.Emulator, reader types.Address, caller types.Address, who gethCommon.Address) *big.Int {
	t.Helper()
	res, err := em.Execute(context.Background(), &types.Call{
		From:     caller,
		To:       reader,
		Data:     balanceCalldata(who),
		GasLimit: types.DefaultCallGasLimit,
	})
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	return new(big.Int).SetBytes(res.ReturnedValue)
}

func TestEmulator(t *testing.T) {
	t.Parallel()

	caller := testutils.RandomAddress(t)
	recipient := testutils.RandomAddress(t)
	reader := testutils.RandomAddress(t)

	setupChain := func(callerBalance int64) *testutils.TestChain {
		chain := testutils.NewTestChain(1, 100)
		chain.SetAccount(caller.ToCommon(), &testutils.TestAccount{
			Balance: big.NewInt(callerBalance),
		})
		chain.SetAccount(reader.ToCommon(), &testutils.TestAccount{
			Code: testutils.BalanceReaderCode,
		})
		return chain
	}

	t.Run("selecting an unknown handle fails", func(t *testing.T) {
		em := emulator.NewEmulator(zerolog.Nop())
		err := em.Select(types.ForkHandle(42), nil)
		require.True(t, types.IsSelectError(err))
		require.ErrorIs(t, err, types.ErrForkNotFound)
	})

	t.Run("executing without an active snapshot fails", func(t *testing.T) {
		em := emulator.NewEmulator(zerolog.Nop())
		_, err := em.Execute(context.Background(), &types.Call{
			From:     caller,
			To:       recipient,
			GasLimit: types.DefaultCallGasLimit,
		})
		require.True(t, types.IsEngineError(err))
		require.ErrorIs(t, err, types.ErrNoActiveFork)
	})

	t.Run("handles are distinct and activate on select", func(t *testing.T) {
		em := emulator.NewEmulator(zerolog.Nop())
		h1 := adoptChain(t, em, setupChain(1000), 100)
		h2 := adoptChain(t, em, setupChain(1000), 100)
		require.NotEqual(t, h1, h2)
		require.False(t, em.IsActive(h1))

		require.NoError(t, em.Select(h1, nil))
		require.True(t, em.IsActive(h1))
		require.False(t, em.IsActive(h2))

		require.NoError(t, em.Select(h2, nil))
		require.True(t, em.IsActive(h2))
		require.False(t, em.IsActive(h1))
	})

	t.Run("committing transfer persists, non-committing does not", func(t *testing.T) {
		em := emulator.NewEmulator(zerolog.Nop())
		handle := adoptChain(t, em, setupChain(1000), 100)
		require.NoError(t, em.Select(handle, nil))

		res, err := em.Execute(context.Background(), &types.Call{
			From:       caller,
			To:         recipient,
			Value:      big.NewInt(100),
			GasLimit:   types.DefaultCallGasLimit,
			Committing: true,
		})
		require.NoError(t, err)
		require.True(t, res.Succeeded())

		bal := readBalance(t, em, reader, caller, recipient.ToCommon())
		require.Equal(t, int64(100), bal.Int64())

		// a non-committing transfer leaves no trace
		res, err = em.Execute(context.Background(), &types.Call{
			From:     caller,
			To:       recipient,
			Value:    big.NewInt(50),
			GasLimit: types.DefaultCallGasLimit,
		})
		require.NoError(t, err)
		require.True(t, res.Succeeded())

		bal = readBalance(t, em, reader, caller, recipient.ToCommon())
		require.Equal(t, int64(100), bal.Int64())
	})

	t.Run("snapshots are isolated and survive switching", func(t *testing.T) {
		em := emulator.NewEmulator(zerolog.Nop())
		h1 := adoptChain(t, em, setupChain(1000), 100)
		h2 := adoptChain(t, em, setupChain(1000), 200)

		require.NoError(t, em.Select(h1, nil))
		_, err := em.Execute(context.Background(), &types.Call{
			From:       caller,
			To:         recipient,
			Value:      big.NewInt(75),
			GasLimit:   types.DefaultCallGasLimit,
			Committing: true,
		})
		require.NoError(t, err)

		// the second snapshot never saw the transfer
		require.NoError(t, em.Select(h2, nil))
		bal := readBalance(t, em, reader, caller, recipient.ToCommon())
		require.Zero(t, bal.Sign())

		// and the first kept it
		require.NoError(t, em.Select(h1, nil))
		bal = readBalance(t, em, reader, caller, recipient.ToCommon())
		require.Equal(t, int64(75), bal.Int64())
	})

	t.Run("reverted call reports failure without transport error", func(t *testing.T) {
		reverting := testutils.RandomAddress(t)
		chain := setupChain(1000)
		chain.SetAccount(reverting.ToCommon(), &testutils.TestAccount{
			Code: testutils.RevertingCode,
		})

		em := emulator.NewEmulator(zerolog.Nop())
		handle := adoptChain(t, em, chain, 100)
		require.NoError(t, em.Select(handle, nil))

		res, err := em.Execute(context.Background(), &types.Call{
			From:     caller,
			To:       reverting,
			GasLimit: types.DefaultCallGasLimit,
		})
		require.NoError(t, err)
		require.True(t, res.Failed)
		require.Error(t, res.VMError)
	})

	t.Run("committing reverted call still bumps the nonce", func(t *testing.T) {
		reverting := testutils.RandomAddress(t)
		chain := setupChain(1000)
		chain.SetAccount(reverting.ToCommon(), &testutils.TestAccount{
			Code: testutils.RevertingCode,
		})

		em := emulator.NewEmulator(zerolog.Nop())
		handle := adoptChain(t, em, chain, 100)
		require.NoError(t, em.Select(handle, nil))

		res, err := em.Execute(context.Background(), &types.Call{
			From:       caller,
			To:         reverting,
			GasLimit:   types.DefaultCallGasLimit,
			Committing: true,
		})
		require.NoError(t, err)
		require.True(t, res.Failed)

		// the next committing call runs with the bumped nonce
		res, err = em.Execute(context.Background(), &types.Call{
			From:       caller,
			To:         recipient,
			Value:      big.NewInt(1),
			GasLimit:   types.DefaultCallGasLimit,
			Committing: true,
		})
		require.NoError(t, err)
		require.True(t, res.Succeeded())
	})

	t.Run("select override replaces the chain context", func(t *testing.T) {
		numberer := testutils.RandomAddress(t)
		chain := setupChain(1000)
		chain.SetAccount(numberer.ToCommon(), &testutils.TestAccount{
			Code: testutils.BlockNumberCode,
		})

		em := emulator.NewEmulator(zerolog.Nop())
		h1 := adoptChain(t, em, chain, 100)
		h2 := adoptChain(t, em, chain, 100)

		require.NoError(t, em.Select(h1, nil))
		res, err := em.Execute(context.Background(), &types.Call{
			From:     caller,
			To:       numberer,
			GasLimit: types.DefaultCallGasLimit,
		})
		require.NoError(t, err)
		require.Equal(t, int64(100), new(big.Int).SetBytes(res.ReturnedValue).Int64())

		// bounce through another handle so re-selecting h1 applies the
		// override
		require.NoError(t, em.Select(h2, nil))
		require.NoError(t, em.Select(h1, types.NewDefaultChainContext(chain.ID, 555)))

		res, err = em.Execute(context.Background(), &types.Call{
			From:     caller,
			To:       numberer,
			GasLimit: types.DefaultCallGasLimit,
		})
		require.NoError(t, err)
		require.Equal(t, int64(555), new(big.Int).SetBytes(res.ReturnedValue).Int64())
	})

	t.Run("logs are collected on success", func(t *testing.T) {
		emitting := testutils.RandomAddress(t)
		chain := setupChain(1000)
		chain.SetAccount(emitting.ToCommon(), &testutils.TestAccount{
			Code: testutils.EmittingCode,
		})

		em := emulator.NewEmulator(zerolog.Nop())
		handle := adoptChain(t, em, chain, 100)
		require.NoError(t, em.Select(handle, nil))

		res, err := em.Execute(context.Background(), &types.Call{
			From:     caller,
			To:       emitting,
			GasLimit: types.DefaultCallGasLimit,
		})
		require.NoError(t, err)
		require.True(t, res.Succeeded())
		require.Len(t, res.Logs, 1)
		require.Equal(t, emitting.ToCommon(), res.Logs[0].Address)
	})

	t.Run("close drops the arena", func(t *testing.T) {
		em := emulator.NewEmulator(zerolog.Nop())
		handle := adoptChain(t, em, setupChain(1000), 100)
		require.NoError(t, em.Select(handle, nil))
		require.NoError(t, em.Close())

		require.False(t, em.IsActive(handle))
		require.Error(t, em.Select(handle, nil))
	})
}
