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

package ivol

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/dataframe"
	"github.com/penny-vault/ivbt/strategies/strategy"
)

// LookbackWindow takes the trailing `lookback` rows of history and keeps only those in the same calendar
// month as the last row. Early in a month this leaves very few rows.
func LookbackWindow(history *dataframe.DataFrame, lookback int) *dataframe.DataFrame {
	tail := history.Tail(lookback)
	if tail.Len() == 0 {
		return tail
	}

	last := tail.End()
	return tail.Filter(func(dt time.Time) bool {
		return dt.Year() == last.Year() && dt.Month() == last.Month()
	})
}

// ComputeWeights allocates across the window's columns in proportion to the inverse of each column's
// population standard deviation of daily returns. Columns with zero volatility have an infinite inverse
// volatility and split the whole allocation evenly between themselves.
func ComputeWeights(window *dataframe.DataFrame) (*strategy.Pie, error) {
	if window.Len() < 2 {
		return nil, fmt.Errorf("%w: volatility requires at least 2 prices, window has %d", data.ErrInsufficientData, window.Len())
	}

	if window.ColCount() == 0 {
		return nil, fmt.Errorf("%w: window has no columns", data.ErrMalformedInput)
	}

	if err := data.ValidatePrices(window); err != nil {
		return nil, err
	}

	returns := window.PctChange().Slice(1, window.Len())

	pie := &strategy.Pie{
		Members:        make(map[string]float64, window.ColCount()),
		Justifications: make(map[string]float64, window.ColCount()),
	}

	invVol := make([]float64, window.ColCount())
	zeroVol := 0
	for colIdx, ticker := range window.ColNames {
		sigma := stat.PopStdDev(returns.Vals[colIdx], nil)
		if !(sigma > 0) {
			sigma = 0
			zeroVol++
		}
		pie.Justifications[ticker] = sigma
		invVol[colIdx] = 1 / sigma
	}

	if zeroVol > 0 {
		for colIdx, ticker := range window.ColNames {
			if math.IsInf(invVol[colIdx], 1) {
				pie.Members[ticker] = 1 / float64(zeroVol)
			} else {
				pie.Members[ticker] = 0
			}
		}
		return pie, nil
	}

	total := floats.Sum(invVol)
	for colIdx, ticker := range window.ColNames {
		pie.Members[ticker] = invVol[colIdx] / total
	}

	return pie, nil
}
