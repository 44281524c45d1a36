package domain

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	minPairLen = 3
	maxPairLen = 20
)

// NormalizePair trims and lower-cases an exchange pair such as "BTCUSD".
// Pairs are 3 to 20 ASCII letters or digits.
func NormalizePair(raw string) (string, error) {
	pair := strings.ToLower(strings.TrimSpace(raw))
	if pair == "" {
		return "", errors.Wrap(ErrValidation, "pair is required")
	}
	if len(pair) < minPairLen || len(pair) > maxPairLen {
		return "", errors.Wrapf(ErrValidation, "pair must be %d-%d characters", minPairLen, maxPairLen)
	}
	for _, r := range pair {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "", errors.Wrapf(ErrValidation, "pair %q must contain only letters and digits", raw)
		}
	}
	return pair, nil
}

// Symbol returns the upper-case exchange symbol for a normalized pair.
func Symbol(pair string) string {
	return strings.ToUpper(pair)
}
