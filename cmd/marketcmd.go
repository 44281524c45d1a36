package main

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/papertrade/config"
	"github.com/vadiminshakov/papertrade/internal/services/market"
	"go.uber.org/zap"
)

type marketFlags struct {
	configPath string
	platform   string
	baseURL    string
}

func newMarketCmd() *cobra.Command {
	var flags marketFlags

	cmd := &cobra.Command{
		Use:   "market",
		Short: "Query market data through the gateway",
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config")
	cmd.PersistentFlags().StringVar(&flags.platform, "platform", "", "override market.platform (gemini, binance, bybit)")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "override market.base_url")

	cmd.AddCommand(newTickerCmd(&flags), newCandlesCmd(&flags))
	return cmd
}

// gateway needs only the market section, so no secret is required here.
func (f *marketFlags) gateway() (*market.Gateway, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.platform != "" {
		cfg.Market.Platform = f.platform
	}
	if f.baseURL != "" {
		cfg.Market.BaseURL = f.baseURL
	}

	source, err := market.NewSource(cfg.Market)
	if err != nil {
		return nil, err
	}
	return market.NewGateway(source, cfg.Market.Timeout, zap.NewNop()), nil
}

func newTickerCmd(flags *marketFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ticker <pair>",
		Short: "Print the current quote for a pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.gateway()
			if err != nil {
				return err
			}
			quote, err := g.GetTicker(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, quote)
		},
	}
}

func newCandlesCmd(flags *marketFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "candles <pair> <timeframe>",
		Short: "Print candles for a pair, synthetic when the exchange is unavailable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.gateway()
			if err != nil {
				return err
			}
			series, err := g.GetCandles(cmd.Context(), args[0], args[1], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, series)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", market.DefaultCandleLimit, "number of candles (1-1000)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode output")
	}
	return nil
}
