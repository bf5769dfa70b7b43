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

package portfolio_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/ivbt/data"
	"github.com/penny-vault/ivbt/portfolio"
)

var _ = Describe("Metrics", func() {
	var (
		ctx   context.Context
		dates []time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		dates = weekdays(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), 6)
	})

	Describe("CAGR", func() {
		It("is about 41.42% when the value doubles over two years", func() {
			perf := measured([]time.Time{
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			}, 100, 200)
			Expect(perf.CAGR()).To(BeNumerically("~", math.Sqrt2-1, 1e-3))
		})

		It("is zero when the value does not change", func() {
			perf := measured(dates, 100, 100, 100, 100, 100, 100)
			Expect(perf.CAGR()).To(BeNumerically("==", 0))
		})

		It("counts whole days only", func() {
			perf := measured([]time.Time{
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 1, 1, 23, 0, 0, 0, time.UTC),
			}, 100, 101)
			Expect(perf.Years()).To(BeNumerically("==", 0))
			Expect(math.IsNaN(perf.CAGR())).To(BeTrue())
		})
	})

	Describe("SharpeRatio", func() {
		It("divides the mean daily return by its sample standard deviation", func() {
			perf := measured(dates[:4], 100, 110, 99, 108.9)
			Expect(perf.DailyReturns()).To(HaveLen(3))
			Expect(perf.SharpeRatio(0)).To(BeNumerically("~", 0.288675, 1e-5))
		})

		It("subtracts the risk free rate from the mean return", func() {
			perf := measured(dates[:4], 100, 110, 99, 108.9)
			mean := 0.1 / 3
			Expect(perf.SharpeRatio(mean)).To(BeNumerically("~", 0, 1e-9))
		})

		It("is NaN when the returns do not vary", func() {
			perf := measured(dates, 100, 100, 100, 100, 100, 100)
			Expect(math.IsNaN(perf.SharpeRatio(0))).To(BeTrue())
		})

		It("is NaN with a single return", func() {
			perf := measured(dates[:2], 100, 105)
			Expect(math.IsNaN(perf.SharpeRatio(0))).To(BeTrue())
		})
	})

	Describe("DrawDowns", func() {
		It("finds every draw down and the largest one", func() {
			perf := measured(dates, 100, 120, 90, 60, 130, 110)

			all := perf.AllDrawDowns()
			Expect(all).To(HaveLen(2))
			Expect(all[1].Recovery.IsZero()).To(BeTrue())
			Expect(all[1].LossPercent).To(BeNumerically("~", 110.0/130.0-1, 1e-9))

			dd := perf.MaxDrawDown()
			Expect(dd).ToNot(BeNil())
			Expect(dd.Begin).To(Equal(dates[1]))
			Expect(dd.End).To(Equal(dates[3]))
			Expect(dd.Recovery).To(Equal(dates[4]))
			Expect(dd.LossPercent).To(BeNumerically("~", -0.5, 1e-9))
		})

		It("is nil when the value never declines", func() {
			perf := measured(dates, 100, 101, 102, 103, 104, 105)
			Expect(perf.AllDrawDowns()).To(BeEmpty())
			Expect(perf.MaxDrawDown()).To(BeNil())
		})
	})

	Describe("Analyze", func() {
		It("summarizes the value series", func() {
			perf := measured(dates, 100, 120, 90, 60, 130, 110)
			metrics, err := portfolio.Analyze(ctx, perf, 0)
			Expect(err).To(BeNil())
			Expect(metrics.StartValue).To(BeNumerically("==", 100))
			Expect(metrics.EndValue).To(BeNumerically("==", 110))
			Expect(metrics.MaxValue).To(BeNumerically("==", 130))
			Expect(metrics.MinValue).To(BeNumerically("==", 60))
			Expect(metrics.SharpeRatio).To(BeNumerically("~", perf.SharpeRatio(0), 1e-12))
			Expect(metrics.CAGR).To(BeNumerically("~", perf.CAGR(), 1e-12))
			Expect(metrics.MaxDrawDown.LossPercent).To(BeNumerically("~", -0.5, 1e-9))
		})

		It("reports a NaN sharpe ratio for a flat series without failing", func() {
			perf := measured(dates, 100, 100, 100, 100, 100, 100)
			metrics, err := portfolio.Analyze(ctx, perf, 0)
			Expect(err).To(BeNil())
			Expect(math.IsNaN(metrics.SharpeRatio)).To(BeTrue())
			Expect(metrics.CAGR).To(BeNumerically("==", 0))
			Expect(metrics.MaxDrawDown).To(BeNil())
		})

		It("needs at least two values", func() {
			_, err := portfolio.Analyze(ctx, measured(dates[:1], 100), 0)
			Expect(err).To(MatchError(data.ErrInsufficientData))

			_, err = portfolio.Analyze(ctx, nil, 0)
			Expect(err).To(MatchError(data.ErrInsufficientData))
		})

		It("needs the values to span at least one day", func() {
			perf := measured([]time.Time{
				time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC),
				time.Date(2020, 1, 1, 16, 0, 0, 0, time.UTC),
			}, 100, 101)
			_, err := portfolio.Analyze(ctx, perf, 0)
			Expect(err).To(MatchError(data.ErrInsufficientData))
		})
	})
})
