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

/*
 * Inverse Volatility
 *
 * Holds a fixed basket of ETFs and, on the last trading day of every month,
 * re-weights it so that each fund's weight is proportional to the inverse of
 * its daily return volatility over the trading days of that month.
 */

package ivol

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
	"github.com/penny-vault/ivbt/strategies/strategy"
)

const (
	DefaultLookback = 30
)

type InverseVolatility struct {
	lookback int
}

// New constructs a new inverse volatility strategy. lookback caps the number of trailing trading days
// considered when estimating volatility
func New(lookback int) (*InverseVolatility, error) {
	if lookback < 2 {
		return nil, fmt.Errorf("%w: lookback must be at least 2 trading days, got %d", data.ErrMalformedInput, lookback)
	}

	return &InverseVolatility{
		lookback: lookback,
	}, nil
}

// IsRebalanceDay reports whether dates[idx] is the last observed trading day of its month, or the last
// date in the series
func IsRebalanceDay(dates []time.Time, idx int) bool {
	if idx == len(dates)-1 {
		return true
	}

	today := dates[idx]
	tomorrow := dates[idx+1]
	return today.Year() != tomorrow.Year() || today.Month() != tomorrow.Month()
}

// Compute walks the price history once and emits a rebalance event with freshly computed weights at every
// month end and at the final date
func (iv *InverseVolatility) Compute(ctx context.Context, prices *dataframe.DataFrame) (*strategy.PieHistory, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "ivol.Compute")
	defer span.End()

	if err := data.ValidatePrices(prices); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid prices")
		return nil, err
	}

	if prices.Len() < 2 {
		err := fmt.Errorf("%w: need at least 2 trading days, got %d", data.ErrInsufficientData, prices.Len())
		span.RecordError(err)
		span.SetStatus(codes.Error, "too few trading days")
		return nil, err
	}

	tickers := make([]string, len(prices.ColNames))
	copy(tickers, prices.ColNames)
	history := strategy.NewPieHistory(tickers)

	// the first day has no return and therefore cannot be evaluated
	for idx := 1; idx < prices.Len(); idx++ {
		if !IsRebalanceDay(prices.Dates, idx) {
			continue
		}

		window := LookbackWindow(prices.Slice(0, idx+1), iv.lookback)
		pie, err := ComputeWeights(window)
		if err != nil {
			log.Error().Err(err).Time("Date", prices.Dates[idx]).Int("WindowLen", window.Len()).Msg("could not compute allocation weights")
			span.RecordError(err)
			span.SetStatus(codes.Error, "weight calculation failed")
			return nil, err
		}

		if err := history.Append(window.End(), pie); err != nil {
			return nil, err
		}

		log.Debug().Time("Date", window.End()).Int("WindowLen", window.Len()).Interface("Weights", pie.Members).Msg("rebalance")
	}

	span.SetAttributes(attribute.Int("NumRebalances", history.Len()))
	log.Info().Int("NumRebalances", history.Len()).Time("FirstRebalance", history.StartDate()).Time("LastRebalance", history.EndDate()).Msg("computed allocation schedule")

	return history, nil
}
