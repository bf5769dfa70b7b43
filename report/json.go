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
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/penny-vault/ivbt/backtest"
	"github.com/penny-vault/ivbt/portfolio"
)

// JSON cannot represent NaN so undefined statistics are encoded as null
type jsonMetrics struct {
	SharpeRatio *float64            `json:"sharpeRatio"`
	CAGR        *float64            `json:"cagr"`
	StartValue  float64             `json:"startValue"`
	EndValue    float64             `json:"endValue"`
	MaxValue    float64             `json:"maxValue"`
	MinValue    float64             `json:"minValue"`
	MaxDrawDown *portfolio.DrawDown `json:"maxDrawDown"`
}

type jsonRebalance struct {
	Date         string             `json:"date"`
	Weights      map[string]float64 `json:"weights"`
	Volatilities map[string]float64 `json:"volatilities,omitempty"`
}

type jsonSummary struct {
	PortfolioID  string           `json:"portfolioID"`
	Config       backtest.Config  `json:"config"`
	PricesDigest string           `json:"pricesDigest"`
	PeriodStart  string           `json:"periodStart"`
	PeriodEnd    string           `json:"periodEnd"`
	Metrics      jsonMetrics      `json:"metrics"`
	Rebalances   []*jsonRebalance `json:"rebalances"`
}

func finiteOrNil(val float64) *float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return nil
	}
	return &val
}

// WriteJSON writes a machine readable summary of a backtest run
func WriteJSON(w io.Writer, result *backtest.Result) error {
	summary := jsonSummary{
		PortfolioID:  result.Performance.PortfolioID.String(),
		Config:       result.Config,
		PricesDigest: result.PricesDigest,
		PeriodStart:  result.Performance.PeriodStart.Format("2006-01-02"),
		PeriodEnd:    result.Performance.PeriodEnd.Format("2006-01-02"),
		Metrics: jsonMetrics{
			SharpeRatio: finiteOrNil(result.Metrics.SharpeRatio),
			CAGR:        finiteOrNil(result.Metrics.CAGR),
			StartValue:  result.Metrics.StartValue,
			EndValue:    result.Metrics.EndValue,
			MaxValue:    result.Metrics.MaxValue,
			MinValue:    result.Metrics.MinValue,
			MaxDrawDown: result.Metrics.MaxDrawDown,
		},
		Rebalances: make([]*jsonRebalance, 0, result.History.Len()),
	}

	iter := result.History.Iterator()
	for iter.Next() {
		pie := iter.Val()
		summary.Rebalances = append(summary.Rebalances, &jsonRebalance{
			Date:         iter.Date().Format("2006-01-02"),
			Weights:      pie.Members,
			Volatilities: pie.Justifications,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
