package domain

import "time"

// BalanceSnapshot paper balance of a user right after a trade.
// Amounts are strings to avoid float precision issues in web consumers.
type BalanceSnapshot struct {
	Timestamp time.Time `json:"ts"`
	UserID    string    `json:"user_id"`
	TradeID   string    `json:"trade_id"`
	Pair      string    `json:"pair"`
	Side      Side      `json:"side"`
	Balance   string    `json:"balance"`
}

// NewBalanceSnapshot creates a snapshot for a committed trade.
func NewBalanceSnapshot(trade Trade, balance string) BalanceSnapshot {
	return BalanceSnapshot{
		Timestamp: trade.Timestamp,
		UserID:    trade.UserID,
		TradeID:   trade.ID,
		Pair:      trade.Pair,
		Side:      trade.Side,
		Balance:   balance,
	}
}

// BalanceSnapshotRecord bundles a snapshot with its WAL index.
type BalanceSnapshotRecord struct {
	Index    uint64
	Snapshot BalanceSnapshot
}
