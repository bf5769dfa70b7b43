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
	"math"
	"time"

	"github.com/google/uuid"
)

// PerformanceMeasurement is the value of the portfolio at the close of a trading day
type PerformanceMeasurement struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// DrawDown is a period in which the portfolio fell from a previous peak
type DrawDown struct {
	Begin       time.Time `json:"begin"`
	End         time.Time `json:"end"`
	Recovery    time.Time `json:"recovery"`
	LossPercent float64   `json:"lossPercent"`
}

// Metrics summarizes a completed simulation
type Metrics struct {
	SharpeRatio float64   `json:"sharpeRatio"`
	CAGR        float64   `json:"cagr"`
	StartValue  float64   `json:"startValue"`
	EndValue    float64   `json:"endValue"`
	MaxValue    float64   `json:"maxValue"`
	MinValue    float64   `json:"minValue"`
	MaxDrawDown *DrawDown `json:"maxDrawDown"`
}

// Performance is the value series of a simulated portfolio. Measurements are appended in date order while
// simulating and are not modified afterwards
type Performance struct {
	PortfolioID  uuid.UUID                 `json:"portfolioID"`
	PeriodStart  time.Time                 `json:"periodStart"`
	PeriodEnd    time.Time                 `json:"periodEnd"`
	ComputedOn   time.Time                 `json:"computedOn"`
	Measurements []*PerformanceMeasurement `json:"measurements"`
}

// NewPerformance creates an empty value series sized for the expected number of trading days
func NewPerformance(expectedDays int) *Performance {
	return &Performance{
		PortfolioID:  uuid.New(),
		ComputedOn:   time.Now(),
		Measurements: make([]*PerformanceMeasurement, 0, expectedDays),
	}
}

func (perf *Performance) append(date time.Time, value float64) {
	if len(perf.Measurements) == 0 {
		perf.PeriodStart = date
	}
	perf.PeriodEnd = date
	perf.Measurements = append(perf.Measurements, &PerformanceMeasurement{
		Time:  date,
		Value: value,
	})
}

// Values returns the portfolio value of every measurement
func (perf *Performance) Values() []float64 {
	vals := make([]float64, len(perf.Measurements))
	for idx, meas := range perf.Measurements {
		vals[idx] = meas.Value
	}
	return vals
}

func newMetrics() *Metrics {
	return &Metrics{
		SharpeRatio: math.NaN(),
		CAGR:        math.NaN(),
		StartValue:  math.NaN(),
		EndValue:    math.NaN(),
		MaxValue:    math.NaN(),
		MinValue:    math.NaN(),
	}
}
