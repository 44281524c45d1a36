// Package trades records paper trades against the ledger and serves trade history.
package trades

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/services/ledger"
	"github.com/vadiminshakov/papertrade/internal/storage"
	"github.com/vadiminshakov/papertrade/pkg/id"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 50

// minTradeGap separates trades of one user that land on the same clock reading.
const minTradeGap = time.Microsecond

// SnapshotSaver receives the balance after each committed trade.
type SnapshotSaver interface {
	Save(snapshot domain.BalanceSnapshot) (uint64, error)
}

// Order is a request to execute a paper trade.
type Order struct {
	UserID   string
	Pair     string
	Side     domain.Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Execution is a recorded trade with the balance it left behind.
type Execution struct {
	Trade   domain.Trade    `json:"trade"`
	Balance decimal.Decimal `json:"balance"`
}

// Service executes trades and lists them.
type Service struct {
	store        storage.Store
	ledger       *ledger.Ledger
	snapshots    SnapshotSaver
	historyLimit int
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures Service.
type Option func(*Service)

// WithSnapshots publishes the post-trade balance to saver.
func WithSnapshots(saver SnapshotSaver) Option {
	return func(s *Service) {
		s.snapshots = saver
	}
}

// WithHistoryLimit caps History. Non-positive values keep the default.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store storage.Store, l *ledger.Ledger, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:        store,
		ledger:       l,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordTrade executes order. A buy debits quantity*price and fails with
// domain.ErrInsufficientFunds when the balance does not cover it; a sell credits
// unconditionally, with no check that the user holds the asset. The balance
// change and the trade record commit together.
func (s *Service) RecordTrade(ctx context.Context, order Order) (*Execution, error) {
	pair, err := domain.NormalizePair(order.Pair)
	if err != nil {
		return nil, err
	}
	if order.Side != domain.SideBuy && order.Side != domain.SideSell {
		return nil, errors.Wrapf(domain.ErrValidation, "side must be buy or sell, got %q", order.Side)
	}
	if err := domain.ValidateAmount("quantity", order.Quantity); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount("price", order.Price); err != nil {
		return nil, err
	}
	total := order.Quantity.Mul(order.Price)
	if err := domain.ValidateTotal(total); err != nil {
		return nil, err
	}

	var exec *Execution
	err = s.ledger.Serialize(order.UserID, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			var (
				balance decimal.Decimal
				err     error
			)
			switch order.Side {
			case domain.SideBuy:
				balance, err = s.ledger.Debit(ctx, tx, order.UserID, total)
			case domain.SideSell:
				balance, err = s.ledger.Credit(ctx, tx, order.UserID, total)
			}
			if err != nil {
				return err
			}

			ts, err := s.nextTimestamp(ctx, tx, order.UserID)
			if err != nil {
				return err
			}

			tradeID, err := id.NewAt(ts)
			if err != nil {
				return err
			}
			trade := domain.Trade{
				ID:        tradeID,
				UserID:    order.UserID,
				Pair:      pair,
				Side:      order.Side,
				Quantity:  order.Quantity,
				Price:     order.Price,
				Total:     total,
				Status:    domain.TradeStatusExecuted,
				Timestamp: ts,
			}
			if err := tx.InsertTrade(ctx, &trade); err != nil {
				return err
			}

			exec = &Execution{Trade: trade, Balance: balance}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "record %s trade", order.Side)
	}

	s.logger.Info("trade executed",
		zap.String("user_id", exec.Trade.UserID),
		zap.String("trade_id", exec.Trade.ID),
		zap.String("trade", exec.Trade.String()),
		zap.String("balance", exec.Balance.String()),
	)
	s.publish(exec)

	return exec, nil
}

// nextTimestamp returns the current time, moved past the user's latest trade if needed.
func (s *Service) nextTimestamp(ctx context.Context, tx storage.Tx, userID string) (time.Time, error) {
	ts := s.now().UTC()
	latest, ok, err := tx.LatestTradeTime(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if ok && !ts.After(latest) {
		ts = latest.Add(minTradeGap)
	}
	return ts, nil
}

// publish failures are logged only; the trade is already committed.
func (s *Service) publish(exec *Execution) {
	if s.snapshots == nil {
		return
	}
	snapshot := domain.NewBalanceSnapshot(exec.Trade, exec.Balance.String())
	if _, err := s.snapshots.Save(snapshot); err != nil {
		s.logger.Warn("failed to save balance snapshot",
			zap.String("trade_id", exec.Trade.ID),
			zap.Error(err),
		)
	}
}

// History returns the user's most recent trades, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		trades, err = tx.TradesByUser(ctx, userID, s.historyLimit)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load trade history")
	}
	return trades, nil
}
