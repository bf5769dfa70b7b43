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

package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/ivbt/dataframe"
)

var _ = Describe("DataFrame", func() {
	Context("with no values", func() {
		var (
			df *dataframe.DataFrame
		)

		BeforeEach(func() {
			df = &dataframe.DataFrame{}
		})

		It("has zero length", func() {
			Expect(df.Len()).To(Equal(0))
		})

		It("has zero columns", func() {
			Expect(df.ColCount()).To(Equal(0))
		})

		It("does not error on trim", func() {
			df = df.Trim(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
			Expect(df.Len()).To(Equal(0))
		})

		It("does not error on tail", func() {
			Expect(df.Tail(30).Len()).To(Equal(0))
		})

		It("prints a placeholder table", func() {
			Expect(df.Table()).To(Equal("<NO DATA>"))
		})
	})

	Context("with 2 years of values and a single column", func() {
		var (
			df *dataframe.DataFrame
		)

		BeforeEach(func() {
			dates := make([]time.Time, 730)
			vals := make([]float64, 730)
			dt := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			for idx := range dates {
				dates[idx] = dt
				dt = dt.AddDate(0, 0, 1)
				vals[idx] = float64(idx)
			}
			df = &dataframe.DataFrame{
				ColNames: []string{"Col1"},
				Dates:    dates,
				Vals:     [][]float64{vals},
			}
		})

		It("has length", func() {
			Expect(df.Len()).To(Equal(730))
		})

		It("finds the column index", func() {
			Expect(df.ColIndex("Col1")).To(Equal(0))
			Expect(df.ColIndex("Col2")).To(Equal(-1))
		})

		It("copies without sharing memory", func() {
			df2 := df.Copy()
			df2.Vals[0][0] = 100
			Expect(df.Vals[0][0]).To(Equal(0.0))
		})

		DescribeTable("trims values by date range", func(a, b time.Time, expectedLen int, expectedA, expectedB time.Time) {
			df = df.Trim(a, b)
			Expect(df.Len()).To(Equal(expectedLen))
			if expectedLen > 1 {
				Expect(df.Dates[0]).To(Equal(expectedA), "expected begin date")
				Expect(df.Dates[len(df.Dates)-1]).To(Equal(expectedB), "expected end date")
			}
		},
			Entry("whole range", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 12, 30, 0, 0, 0, 0, time.UTC), 730, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 12, 30, 0, 0, 0, 0, time.UTC)),
			Entry("range that does not exist in dataframe (left)", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2019, 12, 30, 0, 0, 0, 0, time.UTC), 0, time.Time{}, time.Time{}),
			Entry("range that does not exist in dataframe (right)", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), 0, time.Time{}, time.Time{}),
			Entry("range that touches start but not end", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), 5, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)),
			Entry("range that starts before begin", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), 5, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)),
			Entry("range that extends beyond the end", time.Date(2021, 12, 27, 0, 0, 0, 0, time.UTC), time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), 4, time.Date(2021, 12, 27, 0, 0, 0, 0, time.UTC), time.Date(2021, 12, 30, 0, 0, 0, 0, time.UTC)),
			Entry("single date", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 1, time.Time{}, time.Time{}),
			Entry("inverted range", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 0, time.Time{}, time.Time{}),
		)

		It("returns the trailing rows with tail", func() {
			tail := df.Tail(30)
			Expect(tail.Len()).To(Equal(30))
			Expect(tail.Vals[0][0]).To(Equal(700.0))
			Expect(tail.End()).To(Equal(df.End()))
		})

		It("filters rows by date", func() {
			feb := df.Filter(func(dt time.Time) bool {
				return dt.Year() == 2020 && dt.Month() == time.February
			})
			Expect(feb.Len()).To(Equal(29))
			Expect(feb.Start()).To(Equal(time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)))
		})

		It("keeps the last row", func() {
			last := df.Last()
			Expect(last.Len()).To(Equal(1))
			Expect(last.Vals[0][0]).To(Equal(729.0))
		})
	})

	Context("with prices", func() {
		var (
			df *dataframe.DataFrame
		)

		BeforeEach(func() {
			df = &dataframe.DataFrame{
				Dates: []time.Time{
					time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC),
					time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC),
					time.Date(2021, time.January, 6, 0, 0, 0, 0, time.UTC),
				},
				ColNames: []string{"A", "B"},
				Vals:     [][]float64{{100, 110, 99}, {50, 50, 50}},
			}
		})

		It("computes percent change", func() {
			ret := df.PctChange()
			Expect(ret.Len()).To(Equal(3))
			Expect(math.IsNaN(ret.Vals[0][0])).To(BeTrue())
			Expect(ret.Vals[0][1]).To(BeNumerically("~", 0.1, 1e-12))
			Expect(ret.Vals[0][2]).To(BeNumerically("~", -0.1, 1e-12))
			Expect(ret.Vals[1][1]).To(Equal(0.0))
			Expect(ret.Vals[1][2]).To(Equal(0.0))
		})

		It("has a digest that changes with the data", func() {
			digest := df.Digest()
			Expect(digest).To(HaveLen(64))
			Expect(df.Copy().Digest()).To(Equal(digest))

			other := df.Copy()
			other.Vals[1][2] = 50.5
			Expect(other.Digest()).ToNot(Equal(digest))

			renamed := df.Copy()
			renamed.ColNames = []string{"A", "C"}
			Expect(renamed.Digest()).ToNot(Equal(digest))
		})

		It("selects columns in the requested order", func() {
			sel := df.Select("B", "Z", "A")
			Expect(sel.ColNames).To(Equal([]string{"B", "A"}))
			Expect(sel.Vals[0]).To(Equal([]float64{50, 50, 50}))
			Expect(sel.Len()).To(Equal(3))
		})

		It("does not modify the source when computing percent change", func() {
			df.PctChange()
			Expect(df.Vals[0]).To(Equal([]float64{100, 110, 99}))
		})

		It("inserts rows in date order", func() {
			df.InsertRow(time.Date(2021, time.January, 7, 0, 0, 0, 0, time.UTC), 101, 51)
			Expect(df.Len()).To(Equal(4))
			Expect(df.Vals[1][3]).To(Equal(51.0))
		})

		It("panics when inserting an out of order row", func() {
			Expect(func() {
				df.InsertRow(time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC), 101, 51)
			}).To(Panic())
		})

		It("renders a table", func() {
			Expect(df.Table()).To(ContainSubstring("2021-01-05"))
		})
	})

	Context("with a map of dataframes", func() {
		var (
			dates []time.Time
		)

		BeforeEach(func() {
			dates = []time.Time{
				time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC),
				time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC),
				time.Date(2021, time.January, 6, 0, 0, 0, 0, time.UTC),
			}
		})

		It("merges columns in requested order", func() {
			dfMap := dataframe.Map{
				"B": &dataframe.DataFrame{Dates: dates, ColNames: []string{"B"}, Vals: [][]float64{{4, 5, 6}}},
				"A": &dataframe.DataFrame{Dates: dates, ColNames: []string{"A"}, Vals: [][]float64{{1, 2, 3}}},
			}
			df, err := dfMap.DataFrame("B", "A")
			Expect(err).To(BeNil())
			Expect(df.ColNames).To(Equal([]string{"B", "A"}))
			Expect(df.Vals[1]).To(Equal([]float64{1, 2, 3}))
		})

		It("trims to the common range", func() {
			dfMap := dataframe.Map{
				"A": &dataframe.DataFrame{Dates: dates, ColNames: []string{"A"}, Vals: [][]float64{{1, 2, 3}}},
				"B": &dataframe.DataFrame{Dates: dates[1:], ColNames: []string{"B"}, Vals: [][]float64{{5, 6}}},
			}
			df, err := dfMap.DataFrame("A", "B")
			Expect(err).To(BeNil())
			Expect(df.Len()).To(Equal(2))
			Expect(df.Start()).To(Equal(dates[1]))
		})

		It("errors when an interior date is missing", func() {
			dfMap := dataframe.Map{
				"A": &dataframe.DataFrame{Dates: dates, ColNames: []string{"A"}, Vals: [][]float64{{1, 2, 3}}},
				"B": &dataframe.DataFrame{Dates: []time.Time{dates[0], dates[2]}, ColNames: []string{"B"}, Vals: [][]float64{{4, 6}}},
			}
			_, err := dfMap.DataFrame("A", "B")
			Expect(err).To(MatchError(dataframe.ErrDateIndexNotAligned))
		})
	})
})
