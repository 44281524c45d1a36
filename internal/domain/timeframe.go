package domain

import (
	"strings"
	"time"
)

// Timeframe candle interval.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"

	// DefaultTimeframe is used for any unrecognized interval.
	DefaultTimeframe = Timeframe1h
)

var timeframeSeconds = map[Timeframe]int64{
	Timeframe1m:  60,
	Timeframe5m:  300,
	Timeframe15m: 900,
	Timeframe1h:  3600,
	Timeframe4h:  14400,
	Timeframe1d:  86400,
}

// ParseTimeframe maps raw to a known timeframe, falling back to DefaultTimeframe.
func ParseTimeframe(raw string) Timeframe {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := timeframeSeconds[tf]; ok {
		return tf
	}
	return DefaultTimeframe
}

// Seconds returns the candle length in seconds.
func (t Timeframe) Seconds() int64 {
	if s, ok := timeframeSeconds[t]; ok {
		return s
	}
	return timeframeSeconds[DefaultTimeframe]
}

// Duration returns the candle length.
func (t Timeframe) Duration() time.Duration {
	return time.Duration(t.Seconds()) * time.Second
}

// String returns the string representation.
func (t Timeframe) String() string {
	return string(t)
}
