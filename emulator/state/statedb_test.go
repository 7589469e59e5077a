package state_test

import (
	"fmt"
	"math/big"
	"testing"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	gethParams "github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/forkvm/forkvm/emulator/state"
	"github.com/forkvm/forkvm/testutils"
	"github.com/forkvm/forkvm/types"
)

func emptyBase() *MockedReadOnlyView {
	return &MockedReadOnlyView{
		ExistFunc: func(gethCommon.Address) (bool, error) {
			return false, nil
		},
		GetBalanceFunc: func(gethCommon.Address) (*big.Int, error) {
			return new(big.Int), nil
		},
		GetNonceFunc: func(gethCommon.Address) (uint64, error) {
			return 0, nil
		},
		GetCodeFunc: func(gethCommon.Address) ([]byte, error) {
			return nil, nil
		},
		GetCodeHashFunc: func(gethCommon.Address) (gethCommon.Hash, error) {
			return gethCommon.Hash{}, nil
		},
		GetCodeSizeFunc: func(gethCommon.Address) (int, error) {
			return 0, nil
		},
		GetStateFunc: func(types.SlotAddress) (gethCommon.Hash, error) {
			return gethCommon.Hash{}, nil
		},
	}
}

func TestStateDB(t *testing.T) {
	t.Parallel()

	t.Run("snapshot and revert", func(t *testing.T) {
		addr := testutils.RandomCommonAddress(t)
		db := state.NewStateDB(emptyBase())

		db.AddBalance(addr, big.NewInt(100))

		id := db.Snapshot()
		db.AddBalance(addr, big.NewInt(50))
		require.Equal(t, int64(150), db.GetBalance(addr).Int64())

		db.RevertToSnapshot(id)
		require.Equal(t, int64(100), db.GetBalance(addr).Int64())
		require.NoError(t, db.Error())
	})

	t.Run("invalid snapshot id is withheld", func(t *testing.T) {
		db := state.NewStateDB(emptyBase())
		db.RevertToSnapshot(10)
		require.Error(t, db.Error())
	})

	t.Run("committed state bypasses uncommitted views", func(t *testing.T) {
		addr := testutils.RandomCommonAddress(t)
		key := testutils.RandomCommonHash(t)
		baseValue := testutils.RandomCommonHash(t)

		base := emptyBase()
		base.GetStateFunc = func(types.SlotAddress) (gethCommon.Hash, error) {
			return baseValue, nil
		}
		db := state.NewStateDB(base)

		newValue := testutils.RandomCommonHash(t)
		db.SetState(addr, key, newValue)

		require.Equal(t, newValue, db.GetState(addr, key))
		require.Equal(t, baseValue, db.GetCommittedState(addr, key))
	})

	t.Run("errors are withheld and block folding", func(t *testing.T) {
		addr := testutils.RandomCommonAddress(t)

		base := emptyBase()
		base.GetBalanceFunc = func(gethCommon.Address) (*big.Int, error) {
			return nil, fmt.Errorf("fatal error")
		}
		db := state.NewStateDB(base)

		bal := db.GetBalance(addr)
		require.Zero(t, bal.Sign())
		require.Error(t, db.Error())

		committed := state.NewDeltaView(emptyBase())
		require.Error(t, db.MergeInto(committed))
	})

	t.Run("empty accounts", func(t *testing.T) {
		addr := testutils.RandomCommonAddress(t)
		db := state.NewStateDB(emptyBase())

		require.True(t, db.Empty(addr))
		db.AddBalance(addr, big.NewInt(1))
		require.False(t, db.Empty(addr))
	})

	t.Run("selfdestruct6780 only destructs in-transaction creations", func(t *testing.T) {
		preexisting := testutils.RandomCommonAddress(t)
		fresh := testutils.RandomCommonAddress(t)

		base := emptyBase()
		base.ExistFunc = func(addr gethCommon.Address) (bool, error) {
			return addr == preexisting, nil
		}
		base.GetBalanceFunc = func(gethCommon.Address) (*big.Int, error) {
			return big.NewInt(5), nil
		}
		db := state.NewStateDB(base)

		db.CreateAccount(fresh)

		db.Selfdestruct6780(preexisting)
		require.False(t, db.HasSelfDestructed(preexisting))

		db.Selfdestruct6780(fresh)
		require.True(t, db.HasSelfDestructed(fresh))
		require.NoError(t, db.Error())
	})

	t.Run("prepare warms up the access list", func(t *testing.T) {
		sender := testutils.RandomCommonAddress(t)
		coinbase := testutils.RandomCommonAddress(t)
		dest := testutils.RandomCommonAddress(t)
		key := testutils.RandomCommonHash(t)

		db := state.NewStateDB(emptyBase())
		db.Prepare(
			gethParams.Rules{IsBerlin: true, IsShanghai: true},
			sender,
			coinbase,
			&dest,
			nil,
			gethTypes.AccessList{{Address: dest, StorageKeys: []gethCommon.Hash{key}}},
		)

		require.True(t, db.AddressInAccessList(sender))
		require.True(t, db.AddressInAccessList(coinbase))
		require.True(t, db.AddressInAccessList(dest))
		_, slotOk := db.SlotInAccessList(dest, key)
		require.True(t, slotOk)
	})

	t.Run("logs are stamped and merged across views", func(t *testing.T) {
		db := state.NewStateDB(emptyBase())

		db.AddLog(&gethTypes.Log{Address: testutils.RandomCommonAddress(t)})
		db.Snapshot()
		db.AddLog(&gethTypes.Log{Address: testutils.RandomCommonAddress(t)})

		txHash := testutils.RandomCommonHash(t)
		logs := db.Logs(12, txHash, 0)
		require.Len(t, logs, 2)
		for i, log := range logs {
			require.Equal(t, uint64(12), log.BlockNumber)
			require.Equal(t, txHash, log.TxHash)
			require.Equal(t, uint(i), log.Index)
		}
	})

	t.Run("merge folds views oldest first", func(t *testing.T) {
		addr := testutils.RandomCommonAddress(t)
		db := state.NewStateDB(emptyBase())

		db.AddBalance(addr, big.NewInt(10))
		db.Snapshot()
		db.AddBalance(addr, big.NewInt(5))
		db.SetNonce(addr, 2)

		committed := state.NewDeltaView(emptyBase())
		require.NoError(t, db.MergeInto(committed))

		bal, err := committed.GetBalance(addr)
		require.NoError(t, err)
		require.Equal(t, int64(15), bal.Int64())

		nonce, err := committed.GetNonce(addr)
		require.NoError(t, err)
		require.Equal(t, uint64(2), nonce)
	})
}
