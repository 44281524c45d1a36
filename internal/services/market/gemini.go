package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

const (
	GeminiName           = "gemini"
	DefaultGeminiBaseURL = "https://api.gemini.com"

	maxErrorBody = 512
)

var geminiTimeframes = map[domain.Timeframe]string{
	domain.Timeframe1m:  "1m",
	domain.Timeframe5m:  "5m",
	domain.Timeframe15m: "15m",
	domain.Timeframe1h:  "1hr",
	domain.Timeframe1d:  "1day",
}

// GeminiSource reads the public Gemini REST API.
type GeminiSource struct {
	baseURL string
	client  *http.Client
}

// NewGeminiSource creates a source for baseURL, or the public API when empty.
func NewGeminiSource(baseURL string, client *http.Client) *GeminiSource {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &GeminiSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *GeminiSource) Name() string {
	return GeminiName
}

type geminiTicker struct {
	Bid  string `json:"bid"`
	Ask  string `json:"ask"`
	Last string `json:"last"`
}

func (g *GeminiSource) Ticker(ctx context.Context, pair string) (domain.Quote, error) {
	var t geminiTicker
	if err := g.get(ctx, "/v1/pubticker/"+pair, &t); err != nil {
		return domain.Quote{}, err
	}

	last, err := decimal.NewFromString(t.Last)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse last price %q", t.Last)
	}
	bid, err := decimal.NewFromString(t.Bid)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse bid %q", t.Bid)
	}
	ask, err := decimal.NewFromString(t.Ask)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(err, "parse ask %q", t.Ask)
	}

	return domain.Quote{Pair: pair, Last: last, Bid: bid, Ask: ask, Timestamp: time.Now().UTC()}, nil
}

// Candles reads /v2/candles. Rows are [ms, open, high, low, close, volume], newest first.
func (g *GeminiSource) Candles(ctx context.Context, pair string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	interval, ok := geminiTimeframes[tf]
	if !ok {
		return nil, errors.Errorf("gemini does not serve %s candles", tf)
	}

	var rows [][]json.Number
	if err := g.get(ctx, fmt.Sprintf("/v2/candles/%s/%s", pair, interval), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("no candles returned for %s", pair)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parseGeminiCandle(row)
		if err != nil {
			return nil, errors.Wrapf(err, "candle at index %d", i)
		}
		candles = append(candles, c)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func parseGeminiCandle(row []json.Number) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, errors.Errorf("expected 6 fields, got %d", len(row))
	}
	ms, err := row[0].Int64()
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "parse time")
	}
	return parseCandle(time.UnixMilli(ms), row[1].String(), row[2].String(), row[3].String(), row[4].String(), row[5].String())
}

func (g *GeminiSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
