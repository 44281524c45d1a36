// Command papertrade runs the paper trading API and a few operator tools.
//
// Usage:
//
//	papertrade serve --config config.yaml
//	papertrade config init -o config.yaml
//	papertrade market candles btcusd 1h --limit 20
//
// The token signing secret comes from auth.secret or PAPERTRADE_SECRET_KEY.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
