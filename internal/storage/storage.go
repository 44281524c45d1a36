// Package storage declares the transactional datastore used by the services.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

// Aliases of the domain error kinds returned by Tx implementations.
var (
	ErrNotFound = domain.ErrNotFound
	ErrConflict = domain.ErrConflict
)

// Store runs units of work inside a transaction.
type Store interface {
	// WithTx runs fn in a transaction. The transaction commits when fn returns nil
	// and rolls back on error or panic. fn may be run more than once if the
	// datastore reports a transient lock conflict, so it must not have side effects
	// outside tx.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx is the datastore view available inside a transaction.
// Lookups return an error wrapping domain.ErrNotFound when nothing matches and
// inserts return an error wrapping domain.ErrConflict on a duplicate identity.
type Tx interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByID(ctx context.Context, id string) (*domain.User, error)
	// UserByLogin matches either the username or the email, case-insensitively.
	UserByLogin(ctx context.Context, login string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error

	InsertTrade(ctx context.Context, trade *domain.Trade) error
	// LatestTradeTime returns false when the user has no trades.
	LatestTradeTime(ctx context.Context, userID string) (time.Time, bool, error)
	// TradesByUser returns at most limit trades, most recent first.
	TradesByUser(ctx context.Context, userID string, limit int) ([]domain.Trade, error)
}
