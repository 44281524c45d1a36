package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func testUser(id, username, email string) *domain.User {
	return &domain.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		PaperBalance: decimal.NewFromInt(10000),
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC),
	}
}

func mustCreate(t *testing.T, s *Store, u *domain.User) {
	t.Helper()

	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateUser(ctx, u)
	})
	require.NoError(t, err)
}

func TestSchemaCreated(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('users','trades')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["users"])
	assert.True(t, found["trades"])
}

func TestUsers_CreateAndLookup(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, testUser("u1", "alice", "alice@example.com"))

	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		byID, err := tx.UserByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
		assert.True(t, byID.PaperBalance.Equal(decimal.NewFromInt(10000)))
		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC), byID.CreatedAt)
		assert.Nil(t, byID.LastLogin)

		byEmail, err := tx.UserByLogin(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		byName, err := tx.UserByLogin(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", byName.ID)

		_, err = tx.UserByID(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, tx.TouchLastLogin(ctx, "u1", at))
		byID, err = tx.UserByID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, byID.LastLogin)
		assert.True(t, at.Equal(*byID.LastLogin))
		return nil
	})
	require.NoError(t, err)
}

func TestUsers_UniqueConflicts(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, testUser("u1", "alice", "alice@example.com"))

	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateUser(ctx, testUser("u2", "Alice", "other@example.com"))
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "username")

	err = s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateUser(ctx, testUser("u3", "bob", "alice@example.com"))
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "email")
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, testUser("u1", "alice", "alice@example.com"))

	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		require.NoError(t, tx.SetBalance(ctx, "u1", decimal.NewFromInt(1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assertBalance(t, s, "u1", decimal.NewFromInt(10000))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, testUser("u1", "alice", "alice@example.com"))

	assert.Panics(t, func() {
		_ = s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
			require.NoError(t, tx.SetBalance(ctx, "u1", decimal.NewFromInt(1)))
			panic("unexpected")
		})
	})

	assertBalance(t, s, "u1", decimal.NewFromInt(10000))
}

func TestTrades_InsertAndHistory(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, testUser("u1", "alice", "alice@example.com"))
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, ok, err := tx.LatestTradeTime(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ok)

		for i := 0; i < 5; i++ {
			trade := &domain.Trade{
				ID:        string(rune('a' + i)),
				UserID:    "u1",
				Pair:      "btcusd",
				Side:      domain.SideBuy,
				Quantity:  decimal.NewFromInt(1),
				Price:     decimal.NewFromInt(100),
				Total:     decimal.NewFromInt(100),
				Status:    domain.TradeStatusExecuted,
				Timestamp: base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, tx.InsertTrade(ctx, trade))
		}
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		latest, ok, err := tx.LatestTradeTime(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, base.Add(4*time.Second).Equal(latest))

		trades, err := tx.TradesByUser(ctx, "u1", 3)
		require.NoError(t, err)
		require.Len(t, trades, 3)
		assert.Equal(t, "e", trades[0].ID)
		assert.Equal(t, "d", trades[1].ID)
		assert.Equal(t, "c", trades[2].ID)
		assert.True(t, trades[0].Total.Equal(decimal.NewFromInt(100)))
		return nil
	})
	require.NoError(t, err)
}

func TestTrades_Immutable(t *testing.T) {
	s, path := newTestStore(t)
	mustCreate(t, s, testUser("u1", "alice", "alice@example.com"))
	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertTrade(ctx, &domain.Trade{
			ID: "t1", UserID: "u1", Pair: "btcusd", Side: domain.SideSell,
			Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1), Total: decimal.NewFromInt(1),
			Status: domain.TradeStatusExecuted, Timestamp: time.Now(),
		})
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`UPDATE trades SET total = '0' WHERE id = 't1'`)
	assert.Error(t, err)
	_, err = db.Exec(`DELETE FROM trades WHERE id = 't1'`)
	assert.Error(t, err)
}

func TestTrades_UnknownUserRejected(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertTrade(ctx, &domain.Trade{
			ID: "t1", UserID: "ghost", Pair: "btcusd", Side: domain.SideBuy,
			Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1), Total: decimal.NewFromInt(1),
			Status: domain.TradeStatusExecuted, Timestamp: time.Now(),
		})
	})
	assert.Error(t, err)
}

func assertBalance(t *testing.T, s *Store, userID string, expected decimal.Decimal) {
	t.Helper()

	err := s.WithTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		balance, err := tx.Balance(ctx, userID)
		require.NoError(t, err)
		assert.True(t, expected.Equal(balance), "balance %s, expected %s", balance, expected)
		return nil
	})
	require.NoError(t, err)
}
