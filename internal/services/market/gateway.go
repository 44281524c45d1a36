package market

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultCandleLimit = 100
	MaxCandleLimit     = 1000
	DefaultTimeout     = 10 * time.Second
)

// ResolveLimit maps 0 to DefaultCandleLimit and rejects values outside 1..MaxCandleLimit.
func ResolveLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultCandleLimit, nil
	}
	if limit < 1 || limit > MaxCandleLimit {
		return 0, errors.Wrapf(domain.ErrValidation, "limit must be between 1 and %d", MaxCandleLimit)
	}
	return limit, nil
}

// Gateway serves quotes and candles from a Source. Each upstream call is made
// once, bounded by the gateway timeout, and never retried.
type Gateway struct {
	source  Source
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewGateway creates a gateway. A non-positive timeout uses DefaultTimeout.
func NewGateway(source Source, timeout time.Duration, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{source: source, timeout: timeout, now: time.Now, logger: logger}
}

// GetTicker returns the latest quote or an error wrapping domain.ErrUpstreamUnavailable.
func (g *Gateway) GetTicker(ctx context.Context, rawPair string) (domain.Quote, error) {
	pair, err := domain.NormalizePair(rawPair)
	if err != nil {
		return domain.Quote{}, err
	}
	return g.ticker(ctx, pair)
}

func (g *Gateway) ticker(ctx context.Context, pair string) (domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	quote, err := g.source.Ticker(ctx, pair)
	if err != nil {
		g.logger.Warn("ticker fetch failed",
			zap.String("source", g.source.Name()),
			zap.String("pair", pair),
			zap.Error(err),
		)
		return domain.Quote{}, errors.Wrapf(domain.ErrUpstreamUnavailable, "ticker for %s", pair)
	}
	return quote, nil
}

// GetCandles returns up to limit candles, oldest first. When the source cannot
// serve candles, the series is generated from the current quote and flagged
// synthetic. When the quote is unavailable as well the series is empty.
// Only an invalid pair or limit is reported as an error.
func (g *Gateway) GetCandles(ctx context.Context, rawPair, rawTimeframe string, limit int) (domain.CandleSeries, error) {
	pair, err := domain.NormalizePair(rawPair)
	if err != nil {
		return domain.CandleSeries{}, err
	}
	limit, err = ResolveLimit(limit)
	if err != nil {
		return domain.CandleSeries{}, err
	}
	tf := domain.ParseTimeframe(rawTimeframe)

	series := domain.CandleSeries{Pair: pair, Timeframe: tf}

	candles, err := g.candles(ctx, pair, tf, limit)
	if err == nil {
		series.Source = g.source.Name()
		series.Candles = candles
		return series, nil
	}
	g.logger.Warn("candle fetch failed, using synthetic candles",
		zap.String("source", g.source.Name()),
		zap.String("pair", pair),
		zap.String("timeframe", tf.String()),
		zap.Error(err),
	)

	quote, err := g.ticker(ctx, pair)
	if err != nil {
		series.Source = domain.SourceNone
		series.Candles = []domain.Candle{}
		return series, nil
	}

	series.Source = domain.SourceSynthetic
	series.Synthetic = true
	series.Candles = SyntheticCandles(quote.Last, tf, limit, g.now())
	return series, nil
}

func (g *Gateway) candles(ctx context.Context, pair string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	candles, err := g.source.Candles(ctx, pair, tf, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, errors.New("empty candle response")
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
