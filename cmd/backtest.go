// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/ivbt/backtest"
	"github.com/penny-vault/ivbt/common"
	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/report"
)

const (
	ValueChartFileName  = "portfolio_value.png"
	AllocationsFileName = "portfolio_allocations.csv"
)

func init() {
	def := backtest.DefaultConfig()

	backtestCmd.Flags().Float64("initial-capital", def.InitialCapital, "Starting value of the portfolio")
	backtestCmd.Flags().Float64("risk-free-rate", def.RiskFreeRate, "Daily risk free rate used by the sharpe ratio")
	backtestCmd.Flags().String("start", def.StartDate.Format("2006-01-02"), "First day of the backtest (YYYY-MM-DD)")
	backtestCmd.Flags().String("end", def.EndDate.Format("2006-01-02"), "Last day of the backtest (YYYY-MM-DD)")
	backtestCmd.Flags().Int("lookback", def.Lookback, "Number of trading days used to estimate volatility")
	backtestCmd.Flags().StringSlice("tickers", def.Tickers, "Tickers to hold in the portfolio")
	backtestCmd.Flags().String("data-dir", def.DataDir, "Directory containing <TICKER>.csv price files")
	backtestCmd.Flags().String("output-dir", def.OutputDir, "Directory the chart and allocations are written to")
	backtestCmd.Flags().String("json", "", "Write a JSON summary to the given file, use `-` for stdout")
	bindBacktestFlags()

	rootCmd.AddCommand(backtestCmd)
}

func bindBacktestFlags() {
	viper.BindPFlag("backtest.initial_capital", backtestCmd.Flags().Lookup("initial-capital"))
	viper.BindPFlag("backtest.risk_free_rate", backtestCmd.Flags().Lookup("risk-free-rate"))
	viper.BindPFlag("backtest.start_date", backtestCmd.Flags().Lookup("start"))
	viper.BindPFlag("backtest.end_date", backtestCmd.Flags().Lookup("end"))
	viper.BindPFlag("backtest.lookback", backtestCmd.Flags().Lookup("lookback"))
	viper.BindPFlag("backtest.tickers", backtestCmd.Flags().Lookup("tickers"))
	viper.BindPFlag("backtest.data_dir", backtestCmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("backtest.output_dir", backtestCmd.Flags().Lookup("output-dir"))
}

// configFromViper builds the backtest configuration from flags, environment, and the config file
func configFromViper() (backtest.Config, error) {
	cfg := backtest.DefaultConfig()

	var err error
	if cfg.StartDate, err = common.ParseDate(viper.GetString("backtest.start_date")); err != nil {
		return cfg, fmt.Errorf("%w: start date: %s", data.ErrMalformedInput, err.Error())
	}
	if cfg.EndDate, err = common.ParseDate(viper.GetString("backtest.end_date")); err != nil {
		return cfg, fmt.Errorf("%w: end date: %s", data.ErrMalformedInput, err.Error())
	}

	cfg.InitialCapital = viper.GetFloat64("backtest.initial_capital")
	cfg.RiskFreeRate = viper.GetFloat64("backtest.risk_free_rate")
	cfg.Lookback = viper.GetInt("backtest.lookback")
	cfg.DataDir = viper.GetString("backtest.data_dir")
	cfg.OutputDir = viper.GetString("backtest.output_dir")

	tickers := viper.GetStringSlice("backtest.tickers")
	cfg.Tickers = make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker != "" {
			cfg.Tickers = append(cfg.Tickers, ticker)
		}
	}

	return cfg, cfg.Validate()
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the inverse volatility backtest",
	Long: `Load the adjusted close of every ticker, rebalance the portfolio on the last trading day of each
month, and write the value chart, the allocation history, and a summary of the results.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := configFromViper()
		if err != nil {
			log.Error().Err(err).Msg("invalid configuration")
			return err
		}

		prices, err := data.LoadPrices(ctx, cfg.DataDir, cfg.Tickers, cfg.StartDate, cfg.EndDate)
		if err != nil {
			log.Error().Err(err).Str("DataDir", cfg.DataDir).Msg("could not load prices")
			return err
		}

		result, err := backtest.Run(ctx, cfg, prices)
		if err != nil {
			log.Error().Err(err).Msg("backtest failed")
			return err
		}

		if err := writeOutputs(ctx, cfg.OutputDir, result); err != nil {
			return err
		}

		report.WriteSummary(os.Stdout, result.Metrics)

		jsonFn, err := cmd.Flags().GetString("json")
		if err != nil {
			return err
		}

		return writeJSON(jsonFn, result)
	},
}

func writeOutputs(ctx context.Context, outputDir string, result *backtest.Result) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Error().Err(err).Str("OutputDir", outputDir).Msg("could not create output directory")
		return err
	}

	img, err := report.RenderValueChart(result.Performance)
	if err != nil {
		log.Error().Err(err).Msg("could not render value chart")
		return err
	}

	chartFn := filepath.Join(outputDir, ValueChartFileName)
	if err := os.WriteFile(chartFn, img, 0600); err != nil {
		log.Error().Err(err).Str("FileName", chartFn).Msg("could not save value chart")
		return err
	}

	allocationsFn := filepath.Join(outputDir, AllocationsFileName)
	fh, err := os.Create(allocationsFn)
	if err != nil {
		log.Error().Err(err).Str("FileName", allocationsFn).Msg("could not create allocations file")
		return err
	}
	defer fh.Close()

	if err := report.WriteAllocations(ctx, fh, result.History); err != nil {
		log.Error().Err(err).Str("FileName", allocationsFn).Msg("could not write allocations")
		return err
	}

	log.Info().Str("Chart", chartFn).Str("Allocations", allocationsFn).Msg("saved backtest results")
	return nil
}

func writeJSON(fn string, result *backtest.Result) error {
	switch fn {
	case "":
		return nil
	case "-":
		return report.WriteJSON(os.Stdout, result)
	default:
		fh, err := os.Create(fn)
		if err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("could not create json summary")
			return err
		}
		defer fh.Close()
		return report.WriteJSON(fh, result)
	}
}
