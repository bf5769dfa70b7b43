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

package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/dataframe"
	"github.com/penny-vault/ivbt/observability/opentelemetry"
	"github.com/penny-vault/ivbt/portfolio"
	"github.com/penny-vault/ivbt/strategies/ivol"
	"github.com/penny-vault/ivbt/strategies/strategy"
)

// Result is everything produced by a backtest run
type Result struct {
	Config       Config                 `json:"config"`
	PricesDigest string                 `json:"pricesDigest"`
	History      *strategy.PieHistory   `json:"-"`
	Performance  *portfolio.Performance `json:"-"`
	Metrics      *portfolio.Metrics     `json:"-"`
}

// Run computes the rebalance schedule over prices, simulates the portfolio, and summarizes its performance.
// Prices are trimmed to the configured date range and must contain a column for every configured ticker.
func Run(ctx context.Context, cfg Config, prices *dataframe.DataFrame) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "backtest.Run")
	defer span.End()

	subLog := log.With().Strs("Tickers", cfg.Tickers).Time("StartDate", cfg.StartDate).Time("EndDate", cfg.EndDate).Logger()

	if err := cfg.Validate(); err != nil {
		subLog.Error().Err(err).Msg("invalid backtest configuration")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	if prices == nil {
		span.SetStatus(codes.Error, "no prices")
		return nil, fmt.Errorf("%w: no prices", data.ErrMalformedInput)
	}

	for _, ticker := range cfg.Tickers {
		if prices.ColIndex(ticker) == -1 {
			err := fmt.Errorf("%w: no prices for %s", data.ErrMissingColumn, ticker)
			span.RecordError(err)
			span.SetStatus(codes.Error, "missing ticker")
			return nil, err
		}
	}

	prices = prices.Select(cfg.Tickers...).Trim(cfg.StartDate, cfg.EndDate)
	if prices.Len() == 0 {
		span.SetStatus(codes.Error, "no trading days")
		return nil, data.ErrNoTradingDays
	}

	span.SetAttributes(
		attribute.StringSlice("Tickers", cfg.Tickers),
		attribute.Int("NumDays", prices.Len()),
	)

	strat, err := ivol.New(cfg.Lookback)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	history, err := strat.Compute(ctx, prices)
	if err != nil {
		subLog.Error().Err(err).Msg("could not compute rebalance schedule")
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute failed")
		return nil, err
	}
	stratComputeDur := time.Since(start).Round(time.Millisecond)

	start = time.Now()
	perf, err := portfolio.Simulate(ctx, prices, history, cfg.InitialCapital)
	if err != nil {
		subLog.Error().Err(err).Msg("could not simulate portfolio")
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulate failed")
		return nil, err
	}
	simulateDur := time.Since(start).Round(time.Millisecond)

	start = time.Now()
	metrics, err := portfolio.Analyze(ctx, perf, cfg.RiskFreeRate)
	if err != nil {
		subLog.Error().Err(err).Msg("could not analyze portfolio")
		span.RecordError(err)
		span.SetStatus(codes.Error, "analyze failed")
		return nil, err
	}
	analyzeDur := time.Since(start).Round(time.Millisecond)

	digest := prices.Digest()

	subLog.Info().
		Str("PortfolioID", perf.PortfolioID.String()).
		Str("PricesDigest", digest).
		Int("NumRebalances", history.Len()).
		Dur("StratCalcDur", stratComputeDur).
		Dur("SimulateDur", simulateDur).
		Dur("AnalyzeDur", analyzeDur).
		Msg("backtest runtime performance")

	return &Result{
		Config:       cfg,
		PricesDigest: digest,
		History:      history,
		Performance:  perf,
		Metrics:      metrics,
	}, nil
}
