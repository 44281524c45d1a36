// Package ledger mutates paper balances. Every mutation of one user's balance
// runs under that user's lock so read-modify-write cycles never interleave.
package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/storage"
)

// Ledger debits and credits user balances inside a storage transaction.
type Ledger struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func New() *Ledger {
	return &Ledger{locks: make(map[string]*userLock)}
}

// Serialize runs fn while holding userID's lock.
// Locks are dropped from the table once no caller holds or waits on them.
func (l *Ledger) Serialize(userID string, fn func() error) error {
	lock := l.acquire(userID)
	defer l.release(userID, lock)

	return fn()
}

func (l *Ledger) acquire(userID string) *userLock {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &userLock{}
		l.locks[userID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (l *Ledger) release(userID string, lock *userLock) {
	lock.mu.Unlock()

	l.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()
}

// Debit subtracts amount from the balance and returns the new balance.
// When the balance is below amount it returns domain.ErrInsufficientFunds
// and leaves the balance untouched.
func (l *Ledger) Debit(ctx context.Context, tx storage.Tx, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := tx.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "read balance")
	}
	if balance.LessThan(amount) {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientFunds,
			"balance %s is below %s", balance.String(), amount.String())
	}

	next := balance.Sub(amount)
	if err := tx.SetBalance(ctx, userID, next); err != nil {
		return decimal.Zero, errors.Wrap(err, "write balance")
	}
	return next, nil
}

// Credit adds amount to the balance and returns the new balance.
// There is no upper bound.
func (l *Ledger) Credit(ctx context.Context, tx storage.Tx, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := tx.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "read balance")
	}

	next := balance.Add(amount)
	if err := tx.SetBalance(ctx, userID, next); err != nil {
		return decimal.Zero, errors.Wrap(err, "write balance")
	}
	return next, nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.Wrapf(domain.ErrValidation, "amount must be positive, got %s", amount.String())
	}
	return nil
}
