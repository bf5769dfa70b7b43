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

package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
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

// Simulate compounds initialCapital through the daily returns of prices, holding on each day the allocation of
// the most recent rebalance event dated on or before that day. The value series begins on the first trading
// day on or after the first rebalance event.
func Simulate(ctx context.Context, prices *dataframe.DataFrame, history *strategy.PieHistory, initialCapital float64) (*Performance, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "portfolio.Simulate")
	defer span.End()

	if math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) || initialCapital <= 0 {
		err := fmt.Errorf("%w: initial capital must be a positive number, got %f", data.ErrMalformedInput, initialCapital)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid initial capital")
		return nil, err
	}

	if err := data.ValidatePrices(prices); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid prices")
		return nil, err
	}

	if history == nil || history.Len() == 0 {
		span.SetStatus(codes.Error, "no rebalance events")
		return nil, fmt.Errorf("%w: no rebalance events to simulate", data.ErrInsufficientData)
	}

	weights, err := weightVectors(prices, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid rebalance events")
		return nil, err
	}

	firstEvent := history.Dates[0]
	startIdx := sort.Search(prices.Len(), func(i int) bool {
		return !prices.Dates[i].Before(firstEvent)
	})
	if startIdx == prices.Len() {
		span.SetStatus(codes.Error, "first rebalance after last price")
		return nil, fmt.Errorf("%w: first rebalance on %s is after the last price on %s", data.ErrInsufficientData,
			firstEvent.Format("2006-01-02"), prices.End().Format("2006-01-02"))
	}

	span.SetAttributes(
		attribute.Int("NumEvents", history.Len()),
		attribute.Int("NumDays", prices.Len()-startIdx),
		attribute.Float64("InitialCapital", initialCapital),
	)

	returns := prices.PctChange()
	perf := NewPerformance(prices.Len() - startIdx)

	// advance moves the iterator to the latest event dated on or before dt
	iter := history.Iterator()
	advance := func(dt time.Time) {
		for {
			next, ok := iter.Peek()
			if !ok || next.After(dt) {
				return
			}
			iter.Next()
		}
	}

	advance(prices.Dates[startIdx])
	value := initialCapital
	perf.append(prices.Dates[startIdx], value)

	for rowIdx := startIdx + 1; rowIdx < prices.Len(); rowIdx++ {
		dt := prices.Dates[rowIdx]
		advance(dt)
		active := weights[iter.CurrentIndex]

		dayReturn := 0.0
		for colIdx, w := range active {
			if w == 0 {
				continue
			}
			dayReturn += w * returns.Vals[colIdx][rowIdx]
		}

		value *= 1 + dayReturn
		perf.append(dt, value)
	}

	log.Debug().Str("PortfolioID", perf.PortfolioID.String()).Time("PeriodStart", perf.PeriodStart).
		Time("PeriodEnd", perf.PeriodEnd).Float64("EndValue", value).Msg("simulated portfolio")

	return perf, nil
}

// weightVectors converts each pie into weights indexed by the column order of prices and checks that the event
// dates are strictly increasing
func weightVectors(prices *dataframe.DataFrame, history *strategy.PieHistory) ([][]float64, error) {
	if len(history.Pies) != len(history.Dates) {
		return nil, fmt.Errorf("%w: %d rebalance dates but %d allocations", data.ErrMalformedInput, len(history.Dates), len(history.Pies))
	}

	colIdx := make(map[string]int, prices.ColCount())
	for idx, name := range prices.ColNames {
		colIdx[name] = idx
	}

	vectors := make([][]float64, len(history.Pies))
	for idx, pie := range history.Pies {
		dt := history.Dates[idx]
		if idx > 0 && !history.Dates[idx-1].Before(dt) {
			return nil, fmt.Errorf("%w: rebalance dates are not strictly increasing at %s", data.ErrMalformedInput, dt.Format("2006-01-02"))
		}

		if pie == nil {
			return nil, fmt.Errorf("%w: missing allocation on %s", data.ErrMalformedInput, dt.Format("2006-01-02"))
		}

		vec := make([]float64, prices.ColCount())
		for ticker, w := range pie.Members {
			col, ok := colIdx[ticker]
			if !ok {
				return nil, fmt.Errorf("%w: allocation on %s holds %s which has no prices", data.ErrMalformedInput, dt.Format("2006-01-02"), ticker)
			}
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w: allocation on %s has weight %f for %s", data.ErrMalformedInput, dt.Format("2006-01-02"), w, ticker)
			}
			vec[col] = w
		}
		vectors[idx] = vec
	}

	return vectors, nil
}
