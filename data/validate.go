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

package data

import (
	"fmt"
	"math"

	"github.com/penny-vault/ivbt/dataframe"
)

// ValidatePrices checks that a price dataframe can be used for a backtest: dates are strictly increasing,
// every column has a value for every date, and every price is positive and finite
func ValidatePrices(prices *dataframe.DataFrame) error {
	if prices == nil {
		return fmt.Errorf("%w: prices are nil", ErrMalformedInput)
	}

	if len(prices.Vals) != len(prices.ColNames) {
		return fmt.Errorf("%w: %d columns named but %d present", ErrMalformedInput, len(prices.ColNames), len(prices.Vals))
	}

	for idx := 1; idx < len(prices.Dates); idx++ {
		if !prices.Dates[idx-1].Before(prices.Dates[idx]) {
			return fmt.Errorf("%w: date %s does not follow %s", ErrMalformedInput,
				prices.Dates[idx].Format("2006-01-02"), prices.Dates[idx-1].Format("2006-01-02"))
		}
	}

	for colIdx, col := range prices.Vals {
		if len(col) != len(prices.Dates) {
			return fmt.Errorf("%w: %s has %d values for %d dates", ErrMalformedInput, prices.ColNames[colIdx], len(col), len(prices.Dates))
		}
		for rowIdx, val := range col {
			if math.IsNaN(val) || math.IsInf(val, 0) || val <= 0 {
				return fmt.Errorf("%w: %s has invalid price %f on %s", ErrMalformedInput, prices.ColNames[colIdx], val,
					prices.Dates[rowIdx].Format("2006-01-02"))
			}
		}
	}

	return nil
}
