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

package backtest_test

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/penny-vault/ivbt/backtest"
	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/dataframe"
)

// weekdays returns n consecutive Monday-Friday dates beginning at start
func weekdays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	for dt := start; len(dates) < n; dt = dt.AddDate(0, 0, 1) {
		if dt.Weekday() != time.Saturday && dt.Weekday() != time.Sunday {
			dates = append(dates, dt)
		}
	}
	return dates
}

// synthetic builds prices that oscillate with a different amplitude per ticker
func synthetic(dates []time.Time, tickers ...string) *dataframe.DataFrame {
	df := &dataframe.DataFrame{
		Dates:    dates,
		ColNames: tickers,
		Vals:     make([][]float64, len(tickers)),
	}
	for col := range tickers {
		df.Vals[col] = make([]float64, len(dates))
		for row := range dates {
			df.Vals[col][row] = 100 + float64(row)*0.1 + float64(col+1)*math.Sin(float64(row)*0.7+float64(col))
		}
	}
	return df
}

var _ = Describe("Backtest", func() {
	var (
		ctx context.Context
		cfg backtest.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = backtest.DefaultConfig()
		cfg.Tickers = []string{"EEM", "SPY", "TLT"}
	})

	Describe("DefaultConfig", func() {
		It("uses the standard five ETF basket from 2020 through 2022", func() {
			def := backtest.DefaultConfig()
			Expect(def.InitialCapital).To(Equal(100.0))
			Expect(def.RiskFreeRate).To(Equal(0.0))
			Expect(def.StartDate).To(Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
			Expect(def.EndDate).To(Equal(time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)))
			Expect(def.Lookback).To(Equal(30))
			Expect(def.Tickers).To(Equal([]string{"EEM", "GLD", "SPY", "TLT", "VGK"}))
			Expect(def.DataDir).To(Equal("data"))
			Expect(def.OutputDir).To(Equal("output"))
			Expect(def.Validate()).To(Succeed())
		})

		It("does not share the ticker list", func() {
			def := backtest.DefaultConfig()
			def.Tickers[0] = "XXX"
			Expect(data.DefaultTickers[0]).To(Equal("EEM"))
		})
	})

	DescribeTable("Validate rejects", func(modify func(*backtest.Config), expected error) {
		modify(&cfg)
		Expect(cfg.Validate()).To(MatchError(expected))
	},
		Entry("zero capital", func(c *backtest.Config) { c.InitialCapital = 0 }, data.ErrMalformedInput),
		Entry("NaN capital", func(c *backtest.Config) { c.InitialCapital = math.NaN() }, data.ErrMalformedInput),
		Entry("infinite risk free rate", func(c *backtest.Config) { c.RiskFreeRate = math.Inf(1) }, data.ErrMalformedInput),
		Entry("inverted dates", func(c *backtest.Config) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }, data.ErrInvalidTimeRange),
		Entry("short lookback", func(c *backtest.Config) { c.Lookback = 1 }, data.ErrMalformedInput),
		Entry("no tickers", func(c *backtest.Config) { c.Tickers = nil }, data.ErrMalformedInput),
	)

	Describe("Run", func() {
		var prices *dataframe.DataFrame

		BeforeEach(func() {
			prices = synthetic(weekdays(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 70), "EEM", "SPY", "TLT", "GLD")
		})

		It("rebalances at every month end and on the final day", func() {
			result, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(BeNil())
			Expect(result.History.Tickers).To(Equal([]string{"EEM", "SPY", "TLT"}))
			Expect(result.History.Dates).To(Equal([]time.Time{
				time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 4, 7, 0, 0, 0, 0, time.UTC),
			}))

			for _, pie := range result.History.Pies {
				Expect(pie.Members).To(HaveLen(3))
				Expect(pie.Members).ToNot(HaveKey("GLD"))
				sum := 0.0
				for _, w := range pie.Members {
					Expect(w).To(BeNumerically(">=", 0))
					sum += w
				}
				Expect(sum).To(BeNumerically("~", 1, 1e-9))
			}
		})

		It("simulates from the first rebalance and summarizes the result", func() {
			result, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(BeNil())

			perf := result.Performance
			Expect(perf.PeriodStart).To(Equal(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)))
			Expect(perf.PeriodEnd).To(Equal(time.Date(2020, 4, 7, 0, 0, 0, 0, time.UTC)))
			Expect(perf.Measurements[0].Value).To(Equal(cfg.InitialCapital))

			Expect(result.Metrics.StartValue).To(Equal(cfg.InitialCapital))
			Expect(result.Metrics.EndValue).To(Equal(perf.Measurements[len(perf.Measurements)-1].Value))
			Expect(result.Metrics.MaxValue).To(BeNumerically(">=", result.Metrics.EndValue))
			Expect(result.Metrics.MinValue).To(BeNumerically("<=", result.Metrics.StartValue))
			Expect(math.IsNaN(result.Metrics.CAGR)).To(BeFalse())
			Expect(result.Config.Tickers).To(Equal(cfg.Tickers))
		})

		It("produces identical values for identical inputs", func() {
			result1, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(BeNil())
			result2, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(BeNil())
			Expect(result1.Performance.Values()).To(Equal(result2.Performance.Values()))
			Expect(result1.Metrics).To(Equal(result2.Metrics))
			Expect(result1.PricesDigest).To(Equal(result2.PricesDigest))
			Expect(result1.PricesDigest).To(Equal(prices.Select(cfg.Tickers...).Digest()))
		})

		It("records a span for every stage", func() {
			recorder := tracetest.NewSpanRecorder()
			tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			otel.SetTracerProvider(tracerProvider)
			DeferCleanup(func() {
				Expect(tracerProvider.Shutdown(context.Background())).To(Succeed())
			})

			_, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(BeNil())

			names := []string{}
			for _, span := range recorder.Ended() {
				names = append(names, span.Name())
			}
			Expect(names).To(ConsistOf("ivol.Compute", "portfolio.Simulate", "portfolio.Analyze", "backtest.Run"))
		})

		It("trims prices to the configured range", func() {
			cfg.EndDate = time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)
			result, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(BeNil())
			Expect(result.History.EndDate()).To(Equal(time.Date(2020, 3, 13, 0, 0, 0, 0, time.UTC)))
		})

		It("fails when a configured ticker has no prices", func() {
			cfg.Tickers = []string{"EEM", "VGK"}
			_, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(MatchError(data.ErrMissingColumn))
		})

		It("fails when no prices fall in the configured range", func() {
			cfg.StartDate = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
			cfg.EndDate = time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
			_, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(MatchError(data.ErrNoTradingDays))
		})

		It("fails when the range ends on the first trading day of a month", func() {
			cfg.EndDate = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
			_, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(MatchError(data.ErrInsufficientData))
		})

		It("rejects an invalid configuration", func() {
			cfg.InitialCapital = -1
			_, err := backtest.Run(ctx, cfg, prices)
			Expect(err).To(MatchError(data.ErrMalformedInput))
		})
	})

	Describe("Run with prices loaded from disk", func() {
		It("loads each ticker's csv file and runs the backtest", func() {
			dir, err := os.MkdirTemp("", "ivbt-backtest")
			Expect(err).To(BeNil())
			DeferCleanup(func() {
				os.RemoveAll(dir)
			})

			prices := synthetic(weekdays(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 70), cfg.Tickers...)
			for col, ticker := range prices.ColNames {
				lines := []string{"Date,Open,High,Low,Close,Adj Close,Volume"}
				for row, dt := range prices.Dates {
					lines = append(lines, fmt.Sprintf("%s,1,1,1,1,%.6f,1000", dt.Format("2006-01-02"), prices.Vals[col][row]))
				}
				Expect(os.WriteFile(filepath.Join(dir, ticker+".csv"), []byte(strings.Join(lines, "\n")+"\n"), 0600)).To(Succeed())
			}

			loaded, err := data.LoadPrices(ctx, dir, cfg.Tickers, cfg.StartDate, cfg.EndDate)
			Expect(err).To(BeNil())
			Expect(loaded.Len()).To(Equal(70))

			result, err := backtest.Run(ctx, cfg, loaded)
			Expect(err).To(BeNil())
			Expect(result.History.Len()).To(Equal(4))
			Expect(result.Performance.Measurements).ToNot(BeEmpty())
		})
	})
})
