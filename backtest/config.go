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
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/strategies/ivol"
)

// Config holds the inputs of a single backtest run
type Config struct {
	InitialCapital float64   `json:"initialCapital" mapstructure:"initial_capital"`
	RiskFreeRate   float64   `json:"riskFreeRate" mapstructure:"risk_free_rate"`
	StartDate      time.Time `json:"startDate" mapstructure:"start_date"`
	EndDate        time.Time `json:"endDate" mapstructure:"end_date"`
	Lookback       int       `json:"lookback" mapstructure:"lookback"`
	Tickers        []string  `json:"tickers" mapstructure:"tickers"`
	DataDir        string    `json:"-" mapstructure:"data_dir"`
	OutputDir      string    `json:"-" mapstructure:"output_dir"`
}

// DefaultConfig returns the configuration of the standard five ETF basket from 2020 through 2022
func DefaultConfig() Config {
	tickers := make([]string, len(data.DefaultTickers))
	copy(tickers, data.DefaultTickers)

	return Config{
		InitialCapital: 100.0,
		RiskFreeRate:   0.0,
		StartDate:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
		Lookback:       ivol.DefaultLookback,
		Tickers:        tickers,
		DataDir:        "data",
		OutputDir:      "output",
	}
}

// Validate checks that the configuration describes a runnable backtest
func (cfg Config) Validate() error {
	if math.IsNaN(cfg.InitialCapital) || math.IsInf(cfg.InitialCapital, 0) || cfg.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be a positive number", data.ErrMalformedInput)
	}

	if math.IsNaN(cfg.RiskFreeRate) || math.IsInf(cfg.RiskFreeRate, 0) {
		return fmt.Errorf("%w: risk free rate must be a finite number", data.ErrMalformedInput)
	}

	if cfg.EndDate.Before(cfg.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", data.ErrInvalidTimeRange,
			cfg.EndDate.Format("2006-01-02"), cfg.StartDate.Format("2006-01-02"))
	}

	if cfg.Lookback < 2 {
		return fmt.Errorf("%w: lookback must be at least 2 days, got %d", data.ErrMalformedInput, cfg.Lookback)
	}

	if len(cfg.Tickers) == 0 {
		return fmt.Errorf("%w: no tickers configured", data.ErrMalformedInput)
	}

	return nil
}
