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
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/observability/opentelemetry"
)

// daysPerYear converts a calendar duration into fractional years
const daysPerYear = 365.25

// Analyze computes the summary statistics of a simulated portfolio
func Analyze(ctx context.Context, perf *Performance, riskFreeRate float64) (*Metrics, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "portfolio.Analyze")
	defer span.End()

	if perf == nil || len(perf.Measurements) < 2 {
		span.SetStatus(codes.Error, "not enough measurements")
		return nil, fmt.Errorf("%w: at least 2 portfolio values are required", data.ErrInsufficientData)
	}

	if perf.Years() <= 0 {
		span.SetStatus(codes.Error, "zero length period")
		return nil, fmt.Errorf("%w: portfolio values span less than one day", data.ErrInsufficientData)
	}

	vals := perf.Values()
	metrics := newMetrics()
	metrics.StartValue = vals[0]
	metrics.EndValue = vals[len(vals)-1]
	metrics.MaxValue = floats.Max(vals)
	metrics.MinValue = floats.Min(vals)
	metrics.SharpeRatio = perf.SharpeRatio(riskFreeRate)
	metrics.CAGR = perf.CAGR()
	metrics.MaxDrawDown = perf.MaxDrawDown()

	span.SetAttributes(
		attribute.Float64("CAGR", metrics.CAGR),
		attribute.Float64("EndValue", metrics.EndValue),
	)

	log.Debug().Str("PortfolioID", perf.PortfolioID.String()).Float64("CAGR", metrics.CAGR).
		Float64("Sharpe", metrics.SharpeRatio).Msg("analyzed portfolio")

	return metrics, nil
}

// DailyReturns returns the simple return between each consecutive pair of measurements
func (perf *Performance) DailyReturns() []float64 {
	if len(perf.Measurements) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(perf.Measurements)-1)
	for idx := 1; idx < len(perf.Measurements); idx++ {
		returns[idx-1] = perf.Measurements[idx].Value/perf.Measurements[idx-1].Value - 1
	}
	return returns
}

// SharpeRatio is the mean daily excess return divided by the sample standard deviation of daily returns. The
// result is not annualized. NaN is returned when the standard deviation is zero or undefined.
func (perf *Performance) SharpeRatio(riskFreeRate float64) float64 {
	returns := perf.DailyReturns()
	if len(returns) < 2 {
		return math.NaN()
	}

	stdev := stat.StdDev(returns, nil)
	if !(stdev > 0) {
		return math.NaN()
	}

	return (stat.Mean(returns, nil) - riskFreeRate) / stdev
}

// Years is the number of whole calendar days between the first and last measurement expressed in years
func (perf *Performance) Years() float64 {
	if len(perf.Measurements) < 2 {
		return 0
	}
	start := perf.Measurements[0].Time
	end := perf.Measurements[len(perf.Measurements)-1].Time
	return toYears(end.Sub(start))
}

// CAGR is the compound annual growth rate between the first and last measurement
func (perf *Performance) CAGR() float64 {
	years := perf.Years()
	if years <= 0 {
		return math.NaN()
	}

	start := perf.Measurements[0].Value
	end := perf.Measurements[len(perf.Measurements)-1].Value
	return math.Pow(end/start, 1.0/years) - 1.0
}

// AllDrawDowns computes all portfolio draw downs. A draw down is a period where the value of the portfolio is
// below its previous peak. A draw down that has not recovered by the last measurement is included with a zero
// Recovery date.
func (perf *Performance) AllDrawDowns() []*DrawDown {
	allDrawDowns := []*DrawDown{}
	if len(perf.Measurements) < 2 {
		return allDrawDowns
	}

	peak := perf.Measurements[0].Value
	var drawDown *DrawDown
	var prev time.Time
	for _, v := range perf.Measurements {
		peak = math.Max(peak, v.Value)
		if v.Value < peak {
			loss := v.Value/peak - 1.0
			if drawDown == nil {
				drawDown = &DrawDown{
					Begin:       prev,
					End:         v.Time,
					LossPercent: loss,
				}
			}

			if loss < drawDown.LossPercent {
				drawDown.End = v.Time
				drawDown.LossPercent = loss
			}
		} else if drawDown != nil {
			drawDown.Recovery = v.Time
			allDrawDowns = append(allDrawDowns, drawDown)
			drawDown = nil
		}
		prev = v.Time
	}

	if drawDown != nil {
		allDrawDowns = append(allDrawDowns, drawDown)
	}

	return allDrawDowns
}

// MaxDrawDown returns the draw down with the largest loss or nil if the portfolio never fell below a peak
func (perf *Performance) MaxDrawDown() *DrawDown {
	var maxDrawDown *DrawDown
	for _, dd := range perf.AllDrawDowns() {
		if maxDrawDown == nil || dd.LossPercent < maxDrawDown.LossPercent {
			maxDrawDown = dd
		}
	}
	return maxDrawDown
}

// toYears counts whole days in d
func toYears(d time.Duration) float64 {
	days := math.Floor(d.Hours() / 24)
	return days / daysPerYear
}
