package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

func TestSyntheticCandles_Shape(t *testing.T) {
	price := decimal.NewFromInt(50000)
	now := time.Date(2024, 6, 1, 13, 37, 12, 0, time.UTC)

	for _, tf := range []domain.Timeframe{domain.Timeframe1m, domain.Timeframe1h, domain.Timeframe4h, domain.Timeframe1d} {
		candles := SyntheticCandles(price, tf, 100, now)
		require.Len(t, candles, 100, tf)

		for i, c := range candles {
			assert.True(t, c.High.GreaterThanOrEqual(decimal.Max(c.Open, c.Close)), "%s candle %d high", tf, i)
			assert.True(t, c.Low.LessThanOrEqual(decimal.Min(c.Open, c.Close)), "%s candle %d low", tf, i)
			if i > 0 {
				assert.Equal(t, tf.Duration(), c.Time.Sub(candles[i-1].Time), "%s candle %d spacing", tf, i)
			}
		}
		last := candles[len(candles)-1].Time
		assert.False(t, last.After(now))
		assert.True(t, now.Sub(last) < tf.Duration())
		assert.Zero(t, last.Unix()%tf.Seconds())
	}
}

func TestSyntheticCandles_Formula(t *testing.T) {
	price := decimal.NewFromInt(100)
	now := time.Unix(3600*10, 0)

	candles := SyntheticCandles(price, domain.Timeframe1h, 3, now)
	require.Len(t, candles, 3)

	// i=0: open 100*(1-0.004), close 100*(1-0.003)
	assert.Equal(t, "99.6", candles[0].Open.String())
	assert.Equal(t, "99.7", candles[0].Close.String())
	assert.Equal(t, "99.7997", candles[0].High.String())
	assert.Equal(t, "99.5004", candles[0].Low.String())
	assert.Equal(t, "1000", candles[0].Volume.String())
	assert.Equal(t, int64(3600*8), candles[0].Time.Unix())

	// i=2: open 100*(1+0), close 100*(1+0.003)
	assert.Equal(t, "100", candles[2].Open.String())
	assert.Equal(t, "100.3", candles[2].Close.String())
	assert.Equal(t, "1020", candles[2].Volume.String())
	assert.Equal(t, int64(3600*10), candles[2].Time.Unix())
}

func TestSyntheticCandles_Deterministic(t *testing.T) {
	now := time.Now()
	a := SyntheticCandles(decimal.NewFromInt(7), domain.Timeframe5m, 50, now)
	b := SyntheticCandles(decimal.NewFromInt(7), domain.Timeframe5m, 50, now)

	assert.Equal(t, a, b)
	assert.Empty(t, SyntheticCandles(decimal.NewFromInt(7), domain.Timeframe5m, 0, now))
}
