package market

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/config"
)

// NewSource builds the market data source selected by cfg.Platform.
func NewSource(cfg config.MarketConfig) (Source, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	switch cfg.Platform {
	case config.PlatformGemini, "":
		return NewGeminiSource(cfg.BaseURL, httpClient), nil
	case config.PlatformBinance:
		return NewBinanceSource(cfg.BaseURL, httpClient), nil
	case config.PlatformBybit:
		return NewBybitSource(cfg.BaseURL, httpClient), nil
	default:
		return nil, errors.Errorf("unsupported market platform: %s", cfg.Platform)
	}
}
