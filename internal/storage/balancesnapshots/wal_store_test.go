package balancesnapshots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

func snapshot(userID, tradeID, balance string) domain.BalanceSnapshot {
	return domain.BalanceSnapshot{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UserID:    userID,
		TradeID:   tradeID,
		Pair:      "btcusd",
		Side:      domain.SideBuy,
		Balance:   balance,
	}
}

func TestWALStore_SaveAndRead(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, uint64(0), store.CurrentIndex())

	idx, err := store.Save(snapshot("alice", "t1", "9900"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)
	_, err = store.Save(snapshot("bob", "t2", "500"))
	require.NoError(t, err)
	_, err = store.Save(snapshot("alice", "t3", "9800"))
	require.NoError(t, err)

	assert.Equal(t, uint64(3), store.CurrentIndex())

	all, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t1", all[0].Snapshot.TradeID)
	assert.Equal(t, uint64(3), all[2].Index)

	alice, err := store.SnapshotsForUserAfter("alice", 1)
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, "9800", alice[0].Snapshot.Balance)
	assert.Equal(t, uint64(3), alice[0].Index)

	none, err := store.SnapshotsAfter(3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStore_RequiresUser(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(snapshot("", "t1", "1"))
	assert.Error(t, err)
}

func TestWALStore_NilStore(t *testing.T) {
	var store *WALStore

	_, err := store.Save(snapshot("alice", "t1", "1"))
	assert.Error(t, err)
	assert.Equal(t, uint64(0), store.CurrentIndex())
	assert.Error(t, store.Close())
}
