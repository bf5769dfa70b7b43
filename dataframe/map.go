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

package dataframe

import (
	"fmt"
	"sort"
	"time"
)

// Map holds single or multi-column dataframes keyed by name
type Map map[string]*DataFrame

// Align finds the maximum start and minimum end across all dataframes and trims them to match
func (dfMap Map) Align() Map {
	// find max start and min end
	var start time.Time
	var end time.Time

	// initialize end time with a value from dfMap
	for _, df := range dfMap {
		end = df.End()
		break
	}

	for _, df := range dfMap {
		if df.Start().After(start) {
			start = df.Start()
		}
		if df.End().Before(end) {
			end = df.End()
		}
	}

	// trim df's to expected time range
	dfMapTrimmed := make(Map, len(dfMap))
	for k, df := range dfMap {
		dfMapTrimmed[k] = df.Trim(start, end)
	}

	return dfMapTrimmed
}

// DataFrame converts each item in the map to columns of a single dataframe. Dataframes are trimmed to the
// max start and min end and the columns are ordered by the requested keys. If the date indexes do not
// match row for row ErrDateIndexNotAligned is returned
func (dfMap Map) DataFrame(keys ...string) (*DataFrame, error) {
	if len(keys) == 0 {
		for k := range dfMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	aligned := dfMap.Align()
	df := &DataFrame{}
	for idx, key := range keys {
		v, ok := aligned[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrDateIndexNotAligned, key)
		}

		if idx == 0 {
			df.Dates = v.Dates
		} else {
			if len(df.Dates) != len(v.Dates) {
				return nil, fmt.Errorf("%w: %s has %d rows, expected %d", ErrDateIndexNotAligned, key, len(v.Dates), len(df.Dates))
			}
			for rowIdx, dt := range v.Dates {
				if !dt.Equal(df.Dates[rowIdx]) {
					return nil, fmt.Errorf("%w: %s has %s where %s was expected", ErrDateIndexNotAligned, key,
						dt.Format("2006-01-02"), df.Dates[rowIdx].Format("2006-01-02"))
				}
			}
		}
		df.ColNames = append(df.ColNames, v.ColNames...)
		df.Vals = append(df.Vals, v.Vals...)
	}

	return df, nil
}
