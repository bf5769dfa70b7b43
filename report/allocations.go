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

package report

import (
	"context"
	"fmt"
	"io"

	dfgo "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/strategies/strategy"
)

// AllocationsDateColumn is the header of the first column of the allocations file
const AllocationsDateColumn = "Rebalancing Dates"

// WriteAllocations writes one CSV row per rebalance event with the weight of every ticker
func WriteAllocations(ctx context.Context, w io.Writer, history *strategy.PieHistory) error {
	if history == nil {
		return fmt.Errorf("%w: no rebalance events", data.ErrInsufficientData)
	}

	allocations := history.DataFrame()
	nrows := allocations.Len()

	dates := dfgo.NewSeriesString(AllocationsDateColumn, &dfgo.SeriesInit{Capacity: nrows})
	for _, dt := range allocations.Dates {
		dates.Append(dt.Format("2006-01-02"))
	}

	series := []dfgo.Series{dates}
	for colIdx, ticker := range allocations.ColNames {
		weights := dfgo.NewSeriesFloat64(ticker, &dfgo.SeriesInit{Capacity: nrows})
		for _, w := range allocations.Vals[colIdx] {
			weights.Append(w)
		}
		series = append(series, weights)
	}

	df := dfgo.NewDataFrame(series...)
	if err := exports.ExportToCSV(ctx, w, df); err != nil {
		log.Error().Err(err).Msg("could not export allocations")
		return err
	}

	return nil
}
