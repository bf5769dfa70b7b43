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

	"github.com/vicanso/go-charts/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/portfolio"
)

const (
	ChartTitle  = "Portfolio Value Over Time"
	ChartWidth  = 1300
	ChartHeight = 800
)

// RenderValueChart draws the portfolio value series as a PNG line chart
func RenderValueChart(perf *portfolio.Performance) ([]byte, error) {
	if perf == nil || len(perf.Measurements) < 2 {
		return nil, fmt.Errorf("%w: at least 2 portfolio values are required to draw a chart", data.ErrInsufficientData)
	}

	values := perf.Values()
	xLabels := make([]string, len(perf.Measurements))
	for idx, meas := range perf.Measurements {
		xLabels[idx] = meas.Time.Format("2006-01-02")
	}

	minVal := floats.Min(values)
	maxVal := floats.Max(values)
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	splitNum := 12
	if len(xLabels) < 36 {
		splitNum = len(xLabels) / 3
		if splitNum < 1 {
			splitNum = 1
		}
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(ChartTitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Portfolio Value"},
			Left: charts.PositionRight,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(ChartWidth),
		charts.HeightOptionFunc(ChartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return buf, nil
}
