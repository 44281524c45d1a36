package market

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

var (
	openStep   = decimal.RequireFromString("0.002")
	closeStep  = decimal.RequireFromString("0.003")
	highFactor = decimal.RequireFromString("1.001")
	lowFactor  = decimal.RequireFromString("0.999")
	baseVolume = decimal.NewFromInt(1000)
	volumeStep = decimal.NewFromInt(10)
)

// SyntheticCandles derives n candles from a single price, ending at the
// timeframe bucket containing now. The result is oldest first and depends only
// on its arguments. These candles are placeholders for charts, not market data.
func SyntheticCandles(price decimal.Decimal, tf domain.Timeframe, n int, now time.Time) []domain.Candle {
	if n <= 0 {
		return []domain.Candle{}
	}

	step := tf.Seconds()
	aligned := now.Unix() - now.Unix()%step

	candles := make([]domain.Candle, n)
	for i := 0; i < n; i++ {
		open := price.Mul(decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(i%5 - 2)).Mul(openStep)))
		closePrice := price.Mul(decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(i%3 - 1)).Mul(closeStep)))

		candles[i] = domain.Candle{
			Time:   time.Unix(aligned-int64(n-1-i)*step, 0).UTC(),
			Open:   open,
			High:   decimal.Max(open, closePrice).Mul(highFactor),
			Low:    decimal.Min(open, closePrice).Mul(lowFactor),
			Close:  closePrice,
			Volume: baseVolume.Add(decimal.NewFromInt(int64(i % 500)).Mul(volumeStep)),
		}
	}
	return candles
}
