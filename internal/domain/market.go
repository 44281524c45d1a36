package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote current price for a pair.
type Quote struct {
	Pair      string          `json:"pair"`
	Last      decimal.Decimal `json:"last"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp time.Time       `json:"timestamp"`
}

// Candle single OHLCV candlestick.
type Candle struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// SourceSynthetic names candles produced locally when the exchange is unavailable.
const SourceSynthetic = "synthetic"

// SourceNone marks an empty series returned after a total upstream failure.
const SourceNone = "none"

// CandleSeries candles for a pair in chronological order.
// Synthetic series are display stand-ins, not market data.
type CandleSeries struct {
	Pair      string    `json:"pair"`
	Timeframe Timeframe `json:"timeframe"`
	Source    string    `json:"source"`
	Synthetic bool      `json:"synthetic"`
	Candles   []Candle  `json:"candles"`
}
