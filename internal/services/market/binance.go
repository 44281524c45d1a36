package market

import (
	"context"
	"net/http"
	"sort"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

const (
	BinanceName      = "binance"
	binanceMaxKlines = 1000
)

// BinanceSource reads public Binance spot market data.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource wraps an unauthenticated client. An empty baseURL keeps the library default.
func NewBinanceSource(baseURL string, httpClient *http.Client) *BinanceSource {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BinanceSource{client: client}
}

func (b *BinanceSource) Name() string {
	return BinanceName
}

func (b *BinanceSource) Ticker(ctx context.Context, pair string) (domain.Quote, error) {
	symbol := domain.Symbol(pair)

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "binance price for %s", symbol)
	}
	if len(prices) == 0 {
		return domain.Quote{}, errors.Errorf("binance returned no price for %s", symbol)
	}
	last, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse price %q", prices[0].Price)
	}

	books, err := b.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "binance book ticker for %s", symbol)
	}
	if len(books) == 0 {
		return domain.Quote{}, errors.Errorf("binance returned no book ticker for %s", symbol)
	}
	bid, err := decimal.NewFromString(books[0].BidPrice)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse bid %q", books[0].BidPrice)
	}
	ask, err := decimal.NewFromString(books[0].AskPrice)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse ask %q", books[0].AskPrice)
	}

	return domain.Quote{Pair: pair, Last: last, Bid: bid, Ask: ask, Timestamp: time.Now().UTC()}, nil
}

func (b *BinanceSource) Candles(ctx context.Context, pair string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	if limit > binanceMaxKlines {
		limit = binanceMaxKlines
	}
	symbol := domain.Symbol(pair)

	klines, err := b.client.NewKlinesService().Symbol(symbol).Interval(tf.String()).Limit(limit).Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "binance klines for %s", symbol)
	}
	if len(klines) == 0 {
		return nil, errors.Errorf("no kline data returned from Binance for %s", symbol)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for i, k := range klines {
		c, err := parseCandle(time.UnixMilli(k.OpenTime), k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "kline at index %d", i)
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

// parseCandle builds a candle from exchange decimal strings.
func parseCandle(openTime time.Time, open, high, low, closePrice, volume string) (domain.Candle, error) {
	fields := [5]string{open, high, low, closePrice, volume}
	var values [5]decimal.Decimal
	for i, raw := range fields {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.Candle{}, errors.Wrapf(err, "parse %q", raw)
		}
		values[i] = v
	}
	return domain.Candle{
		Time:   openTime.UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
