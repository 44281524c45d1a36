package market

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

const (
	BybitName      = "bybit"
	bybitMaxKlines = 1000
)

// BybitSource reads public Bybit V5 spot market data.
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource wraps an unauthenticated client. An empty baseURL keeps the library default.
func NewBybitSource(baseURL string, httpClient *http.Client) *BybitSource {
	client := bybit.NewClient()
	if httpClient != nil {
		client = client.WithHTTPClient(httpClient)
	}
	if baseURL != "" {
		client = client.WithBaseURL(baseURL)
	}
	return &BybitSource{client: client}
}

func (p *BybitSource) Name() string {
	return BybitName
}

func (p *BybitSource) Ticker(_ context.Context, pair string) (domain.Quote, error) {
	symbol := bybit.SymbolV5(domain.Symbol(pair))

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "bybit ticker for %s", symbol)
	}
	if result == nil || len(result.Result.Spot.List) == 0 {
		return domain.Quote{}, errors.Errorf("bybit API returned empty tickers for %s", symbol)
	}
	item := result.Result.Spot.List[0]

	last, err := decimal.NewFromString(item.LastPrice)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse last price %q", item.LastPrice)
	}
	bid, err := decimal.NewFromString(item.Bid1Price)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse bid %q", item.Bid1Price)
	}
	ask, err := decimal.NewFromString(item.Ask1Price)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse ask %q", item.Ask1Price)
	}

	return domain.Quote{Pair: pair, Last: last, Bid: bid, Ask: ask, Timestamp: time.Now().UTC()}, nil
}

// Candles reads V5 klines. Bybit lists them newest first.
func (p *BybitSource) Candles(_ context.Context, pair string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	if limit > bybitMaxKlines {
		limit = bybitMaxKlines
	}

	interval, err := convertIntervalToBybit(tf.String())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", tf)
	}
	symbol := bybit.SymbolV5(domain.Symbol(pair))

	result, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   symbol,
		Interval: bybit.Interval(interval),
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
	}
	if result == nil || len(result.Result.List) == 0 {
		return nil, errors.Errorf("no kline data returned from Bybit for %s", symbol)
	}

	candles := make([]domain.Candle, 0, len(result.Result.List))
	for i, k := range result.Result.List {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "kline at index %d", i)
		}
		c, err := parseCandle(openTime, k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "kline at index %d", i)
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

// convertIntervalToBybit converts "1m", "4h", "1d" style intervals to Bybit's "1", "240", "D".
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.ParseInt(interval[:len(interval)-1], 10, 64)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid interval number: %s", interval)
	}

	switch unit {
	case 'm':
		return strconv.FormatInt(n, 10), nil
	case 'h':
		return strconv.FormatInt(n*60, 10), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts a millisecond timestamp string.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	msec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}
	return time.UnixMilli(msec), nil
}
