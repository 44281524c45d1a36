package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side direction of a trade.
type Side string

const (
	// SideBuy spends paper balance.
	SideBuy Side = "buy"
	// SideSell adds to paper balance.
	SideSell Side = "sell"
)

// String returns the string representation.
func (s Side) String() string {
	return string(s)
}

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", errors.Wrapf(ErrValidation, "side must be buy or sell, got %q", raw)
	}
}

// TradeStatus lifecycle state of a trade record.
type TradeStatus string

// TradeStatusExecuted is the only status a recorded paper trade can have.
const TradeStatusExecuted TradeStatus = "executed"

// Trade immutable record of an executed paper trade.
type Trade struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Pair      string          `json:"pair"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Status    TradeStatus     `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// String returns a human-readable string representation.
func (t *Trade) String() string {
	return fmt.Sprintf("%s %s %s@%s total %s", t.Pair, t.Side, t.Quantity.String(), t.Price.String(), t.Total.String())
}
