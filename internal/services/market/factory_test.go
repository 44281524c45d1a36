package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/papertrade/config"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		platform string
		expected string
	}{
		{platform: config.PlatformGemini, expected: GeminiName},
		{platform: "", expected: GeminiName},
		{platform: config.PlatformBinance, expected: BinanceName},
		{platform: config.PlatformBybit, expected: BybitName},
	}

	for _, tt := range tests {
		src, err := NewSource(config.MarketConfig{Platform: tt.platform})
		require.NoError(t, err, tt.platform)
		assert.Equal(t, tt.expected, src.Name())
	}

	_, err := NewSource(config.MarketConfig{Platform: "kraken"})
	assert.Error(t, err)
}
