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
	"fmt"
	"io"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/ivbt/portfolio"
)

// NotAvailable is printed in place of a statistic that is undefined for the portfolio
const NotAvailable = "n/a"

// formatFixed rounds val to places decimal places; NaN and infinite values are reported as n/a
func formatFixed(val float64, places int32) string {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(val).StringFixed(places)
}

func formatPercent(val float64) string {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(val).Shift(2).StringFixed(2) + "%"
}

// SummaryRows returns the label and formatted value of every summary statistic in display order
func SummaryRows(metrics *portfolio.Metrics) [][]string {
	rows := [][]string{
		{"Starting Portfolio Value", formatFixed(metrics.StartValue, 2)},
		{"Ending Portfolio Value", formatFixed(metrics.EndValue, 2)},
		{"Max Portfolio Value", formatFixed(metrics.MaxValue, 2)},
		{"Min Portfolio Value", formatFixed(metrics.MinValue, 2)},
		{"Sharpe Ratio", formatFixed(metrics.SharpeRatio, 4)},
		{"CAGR", formatPercent(metrics.CAGR)},
	}

	if metrics.MaxDrawDown != nil {
		dd := metrics.MaxDrawDown
		recovery := "not recovered"
		if !dd.Recovery.IsZero() {
			recovery = dd.Recovery.Format("2006-01-02")
		}
		rows = append(rows, []string{"Max Draw Down", fmt.Sprintf("%s (%s to %s, recovered %s)",
			formatPercent(dd.LossPercent), dd.Begin.Format("2006-01-02"), dd.End.Format("2006-01-02"), recovery)})
	} else {
		rows = append(rows, []string{"Max Draw Down", NotAvailable})
	}

	return rows
}

// WriteSummary prints the portfolio statistics as a table and records them in the log
func WriteSummary(w io.Writer, metrics *portfolio.Metrics) {
	rows := SummaryRows(metrics)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()

	log.Info().
		Str("StartValue", rows[0][1]).
		Str("EndValue", rows[1][1]).
		Str("MaxValue", rows[2][1]).
		Str("MinValue", rows[3][1]).
		Str("SharpeRatio", rows[4][1]).
		Str("CAGR", rows[5][1]).
		Msg("portfolio summary")
}
