// Package market fetches quotes and candles from an exchange and falls back to
// synthetic candles when the exchange cannot serve them.
package market

import (
	"context"

	"github.com/vadiminshakov/papertrade/internal/domain"
)

// Source is an exchange market data API.
type Source interface {
	// Name identifies the source in candle series.
	Name() string
	Ticker(ctx context.Context, pair string) (domain.Quote, error)
	// Candles returns at most limit of the most recent candles, oldest first.
	Candles(ctx context.Context, pair string, tf domain.Timeframe, limit int) ([]domain.Candle, error)
}
