package market

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string {
	return "mock"
}

func (m *mockSource) Ticker(ctx context.Context, pair string) (domain.Quote, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(domain.Quote), args.Error(1)
}

func (m *mockSource) Candles(ctx context.Context, pair string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	args := m.Called(ctx, pair, tf, limit)
	candles, _ := args.Get(0).([]domain.Candle)
	return candles, args.Error(1)
}

var errUpstream = errors.New("connection refused")

func TestGateway_GetTicker(t *testing.T) {
	src := &mockSource{}
	quote := domain.Quote{Pair: "btcusd", Last: decimal.NewFromInt(100)}
	src.On("Ticker", mock.Anything, "btcusd").Return(quote, nil)

	g := NewGateway(src, time.Second, nil)
	got, err := g.GetTicker(context.Background(), " BTCUSD ")
	require.NoError(t, err)
	assert.True(t, got.Last.Equal(decimal.NewFromInt(100)))
	src.AssertExpectations(t)
}

func TestGateway_GetTickerUnavailable(t *testing.T) {
	src := &mockSource{}
	src.On("Ticker", mock.Anything, "btcusd").Return(domain.Quote{}, errUpstream).Once()

	g := NewGateway(src, time.Second, nil)
	_, err := g.GetTicker(context.Background(), "btcusd")
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.NotContains(t, err.Error(), "connection refused")
	src.AssertNumberOfCalls(t, "Ticker", 1)
}

func TestGateway_GetTickerInvalidPair(t *testing.T) {
	g := NewGateway(&mockSource{}, time.Second, nil)

	_, err := g.GetTicker(context.Background(), "bt-c")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGateway_GetCandlesFromSource(t *testing.T) {
	src := &mockSource{}
	candles := []domain.Candle{{Time: time.Unix(1, 0)}, {Time: time.Unix(2, 0)}}
	src.On("Candles", mock.Anything, "ethusd", domain.Timeframe15m, DefaultCandleLimit).Return(candles, nil)

	g := NewGateway(src, time.Second, nil)
	series, err := g.GetCandles(context.Background(), "ETHUSD", "15m", 0)
	require.NoError(t, err)
	assert.Equal(t, "mock", series.Source)
	assert.False(t, series.Synthetic)
	assert.Equal(t, domain.Timeframe15m, series.Timeframe)
	assert.Len(t, series.Candles, 2)
}

func TestGateway_GetCandlesSyntheticFallback(t *testing.T) {
	src := &mockSource{}
	src.On("Candles", mock.Anything, "btcusd", domain.Timeframe1h, 25).Return(nil, errUpstream)
	src.On("Ticker", mock.Anything, "btcusd").Return(domain.Quote{Pair: "btcusd", Last: decimal.NewFromInt(30000)}, nil)

	g := NewGateway(src, time.Second, nil)
	series, err := g.GetCandles(context.Background(), "btcusd", "weird", 25)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceSynthetic, series.Source)
	assert.True(t, series.Synthetic)
	assert.Equal(t, domain.Timeframe1h, series.Timeframe)
	require.Len(t, series.Candles, 25)
	for _, c := range series.Candles {
		assert.True(t, c.High.GreaterThanOrEqual(decimal.Max(c.Open, c.Close)))
		assert.True(t, c.Low.LessThanOrEqual(decimal.Min(c.Open, c.Close)))
	}
	src.AssertNumberOfCalls(t, "Candles", 1)
}

func TestGateway_GetCandlesTotalFailure(t *testing.T) {
	src := &mockSource{}
	src.On("Candles", mock.Anything, "btcusd", domain.Timeframe1d, 10).Return(nil, errUpstream)
	src.On("Ticker", mock.Anything, "btcusd").Return(domain.Quote{}, errUpstream)

	g := NewGateway(src, time.Second, nil)
	series, err := g.GetCandles(context.Background(), "btcusd", "1d", 10)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceNone, series.Source)
	assert.False(t, series.Synthetic)
	assert.NotNil(t, series.Candles)
	assert.Empty(t, series.Candles)
}

func TestGateway_GetCandlesEmptyResponseFallsBack(t *testing.T) {
	src := &mockSource{}
	src.On("Candles", mock.Anything, "btcusd", domain.Timeframe1h, 5).Return([]domain.Candle{}, nil)
	src.On("Ticker", mock.Anything, "btcusd").Return(domain.Quote{Last: decimal.NewFromInt(1)}, nil)

	g := NewGateway(src, time.Second, nil)
	series, err := g.GetCandles(context.Background(), "btcusd", "1h", 5)
	require.NoError(t, err)
	assert.True(t, series.Synthetic)
	assert.Len(t, series.Candles, 5)
}

func TestResolveLimit(t *testing.T) {
	tests := []struct {
		in        int
		expected  int
		shouldErr bool
	}{
		{in: 0, expected: DefaultCandleLimit},
		{in: 1, expected: 1},
		{in: 1000, expected: 1000},
		{in: 1001, shouldErr: true},
		{in: -5, shouldErr: true},
	}

	for _, tt := range tests {
		got, err := ResolveLimit(tt.in)
		if tt.shouldErr {
			assert.True(t, errors.Is(err, domain.ErrValidation), "limit %d", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}
