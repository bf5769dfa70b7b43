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

package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/penny-vault/ivbt/dataframe"
)

var (
	ErrOutOfOrder = errors.New("pie date must be after the last date in the history")
)

// Pie is a target allocation; Members maps ticker to weight and Justifications records the per-ticker
// measurement (volatility) that produced the weight
type Pie struct {
	Members        map[string]float64
	Justifications map[string]float64
}

// PieHistory is the ordered list of rebalance events produced by a strategy
type PieHistory struct {
	Tickers []string
	Dates   []time.Time
	Pies    []*Pie
}

type PieHistoryIterator struct {
	CurrentIndex int
	History      *PieHistory
}

// NewPieHistory creates an empty history whose pies allocate across tickers
func NewPieHistory(tickers []string) *PieHistory {
	return &PieHistory{
		Tickers: tickers,
		Dates:   make([]time.Time, 0, 64),
		Pies:    make([]*Pie, 0, 64),
	}
}

// Append adds a new rebalance event; dates must be strictly increasing
func (ph *PieHistory) Append(date time.Time, pie *Pie) error {
	if len(ph.Dates) > 0 && !ph.Dates[len(ph.Dates)-1].Before(date) {
		return fmt.Errorf("%w: %s is not after %s", ErrOutOfOrder, date.Format("2006-01-02"), ph.EndDate().Format("2006-01-02"))
	}
	ph.Dates = append(ph.Dates, date)
	ph.Pies = append(ph.Pies, pie)
	return nil
}

// Len returns the number of rebalance events in the history
func (ph *PieHistory) Len() int {
	return len(ph.Dates)
}

func (ph *PieHistory) Iterator() *PieHistoryIterator {
	return &PieHistoryIterator{
		CurrentIndex: -1,
		History:      ph,
	}
}

// Next advances the iterator and returns false once the history is exhausted
func (iter *PieHistoryIterator) Next() bool {
	if iter.CurrentIndex < len(iter.History.Dates) {
		iter.CurrentIndex++
	}
	return iter.CurrentIndex < len(iter.History.Dates)
}

// Peek returns the date of the next pie without advancing; ok is false if there is none
func (iter *PieHistoryIterator) Peek() (time.Time, bool) {
	nextIdx := iter.CurrentIndex + 1
	if nextIdx >= len(iter.History.Dates) {
		return time.Time{}, false
	}
	return iter.History.Dates[nextIdx], true
}

func (iter *PieHistoryIterator) Date() time.Time {
	if iter.CurrentIndex < 0 || iter.CurrentIndex >= len(iter.History.Dates) {
		return time.Time{}
	}
	return iter.History.Dates[iter.CurrentIndex]
}

func (iter *PieHistoryIterator) Val() *Pie {
	if iter.CurrentIndex < 0 || iter.CurrentIndex >= len(iter.History.Dates) {
		return nil
	}
	return iter.History.Pies[iter.CurrentIndex]
}

func (ph *PieHistory) StartDate() time.Time {
	if len(ph.Dates) > 0 {
		return ph.Dates[0]
	}
	return time.Time{}
}

func (ph *PieHistory) EndDate() time.Time {
	if len(ph.Dates) > 0 {
		return ph.Dates[len(ph.Dates)-1]
	}
	return time.Time{}
}

// DataFrame converts the history to a dataframe with one row per rebalance date and one column of weights
// per ticker
func (ph *PieHistory) DataFrame() *dataframe.DataFrame {
	df := &dataframe.DataFrame{
		ColNames: ph.Tickers,
		Vals:     make([][]float64, len(ph.Tickers)),
	}

	for idx, date := range ph.Dates {
		row := make([]float64, len(ph.Tickers))
		for colIdx, ticker := range ph.Tickers {
			row[colIdx] = ph.Pies[idx].Members[ticker]
		}
		df.InsertRow(date, row...)
	}

	return df
}
