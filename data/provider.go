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
	"context"
	"time"

	"github.com/penny-vault/ivbt/dataframe"
)

// Provider supplies adjusted close prices for a set of tickers. Returned dataframes have one column per
// ticker (in the requested order), dates sorted ascending and trimmed to [begin, end] inclusive
type Provider interface {
	DataType() string
	GetDataForPeriod(ctx context.Context, tickers []string, begin time.Time, end time.Time) (*dataframe.DataFrame, error)
}

// Default basket of exchange traded funds
var DefaultTickers = []string{"EEM", "GLD", "SPY", "TLT", "VGK"}

const (
	ColumnDate          = "Date"
	ColumnAdjustedClose = "Adj Close"
)
