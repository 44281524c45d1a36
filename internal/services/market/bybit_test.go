package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

func TestConvertIntervalToBybit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		shouldErr bool
	}{
		{name: "1 minute", input: "1m", expected: "1"},
		{name: "15 minutes", input: "15m", expected: "15"},
		{name: "1 hour", input: "1h", expected: "60"},
		{name: "4 hours", input: "4h", expected: "240"},
		{name: "1 day", input: "1d", expected: "D"},
		{name: "1 week", input: "1w", expected: "W"},
		{name: "invalid interval - empty", input: "", shouldErr: true},
		{name: "invalid interval - no unit", input: "1", shouldErr: true},
		{name: "invalid interval - unsupported unit", input: "1x", shouldErr: true},
		{name: "invalid interval - no number", input: "mm", shouldErr: true},
		{name: "invalid interval - zero", input: "0h", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := convertIntervalToBybit(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("1672531200000")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got.UTC())

	_, err = parseTimestamp("")
	assert.Error(t, err)
	_, err = parseTimestamp("abc")
	assert.Error(t, err)
}

func TestBybitSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[
			{"symbol":"BTCUSDT","bid1Price":"64000.00","bid1Size":"1","ask1Price":"64000.20","ask1Size":"2",
			"lastPrice":"64000.10","prevPrice24h":"63000","price24hPcnt":"0.0158","highPrice24h":"64500",
			"lowPrice24h":"62900","turnover24h":"1000","volume24h":"10","usdIndexPrice":"64000.05"}
		]},"retExtInfo":{},"time":1717250000000}`))
	})
	mux.HandleFunc("/v5/market/kline", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		assert.Equal(t, "60", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		// newest first, as Bybit returns them
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","symbol":"BTCUSDT","list":[
			["1717246800000","2","4","1.5","3","11","33"],
			["1717243200000","1","3","0.5","2","10","20"]
		]},"retExtInfo":{},"time":1717250000000}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewBybitSource(srv.URL, srv.Client())
	assert.Equal(t, BybitName, src.Name())

	quote, err := src.Ticker(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "btcusdt", quote.Pair)
	assert.Equal(t, "64000.1", quote.Last.String())
	assert.Equal(t, "64000", quote.Bid.String())
	assert.Equal(t, "64000.2", quote.Ask.String())

	candles, err := src.Candles(context.Background(), "btcusdt", domain.Timeframe1h, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), candles[0].Time.UTC())
	assert.Equal(t, "2", candles[0].Close.String())
	assert.Equal(t, "11", candles[1].Volume.String())
}

func TestBybitSource_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[]},"retExtInfo":{},"time":1}`))
	})
	mux.HandleFunc("/v5/market/kline", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":10001,"retMsg":"params error: symbol invalid","result":{},"retExtInfo":{},"time":1}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewBybitSource(srv.URL, srv.Client())

	_, err := src.Ticker(context.Background(), "nosuchpair")
	assert.Error(t, err)

	_, err = src.Candles(context.Background(), "nosuchpair", domain.Timeframe1h, 2)
	assert.Error(t, err)

	_, err = src.Candles(context.Background(), "btcusdt", domain.Timeframe1h, 0)
	assert.Error(t, err)
}
