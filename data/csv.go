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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	dfgo "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ivbt/dataframe"
)

// number of parsed price files each provider keeps in memory
const csvCacheSize = 64

type csvProvider struct {
	dir   string
	cache *lru.Cache
}

// NewCSVProvider creates a provider that reads `<dir>/<TICKER>.csv` files laid out like a Yahoo Finance
// daily history download (Date,Open,High,Low,Close,Adj Close,Volume). Parsed files are cached until they are
// modified on disk.
func NewCSVProvider(dir string) Provider {
	cache, err := lru.New(csvCacheSize)
	if err != nil {
		log.Panic().Err(err).Msg("could not create LRU cache")
	}

	return &csvProvider{
		dir:   dir,
		cache: cache,
	}
}

// LoadPrices reads the adjusted close of each ticker from `<dir>/<TICKER>.csv` for the inclusive date range
func LoadPrices(ctx context.Context, dir string, tickers []string, begin time.Time, end time.Time) (*dataframe.DataFrame, error) {
	return NewCSVProvider(dir).GetDataForPeriod(ctx, tickers, begin, end)
}

func (p *csvProvider) DataType() string {
	return "csv"
}

// GetDataForPeriod loads the adjusted close of every ticker and merges them into a single dataframe.
// Every ticker must have a price on exactly the same dates
func (p *csvProvider) GetDataForPeriod(ctx context.Context, tickers []string, begin time.Time, end time.Time) (*dataframe.DataFrame, error) {
	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers requested", ErrMalformedInput)
	}

	dfMap := make(dataframe.Map, len(tickers))
	for _, ticker := range tickers {
		if _, ok := dfMap[ticker]; ok {
			return nil, fmt.Errorf("%w: ticker %s requested more than once", ErrMalformedInput, ticker)
		}
		df, err := p.loadTicker(ctx, ticker)
		if err != nil {
			return nil, err
		}
		dfMap[ticker] = df.Trim(begin, end)
	}

	first := dfMap[tickers[0]]
	for ticker, df := range dfMap {
		if !df.Start().Equal(first.Start()) || !df.End().Equal(first.End()) {
			return nil, fmt.Errorf("%w: %s covers %s to %s but %s covers %s to %s", ErrMalformedInput,
				ticker, df.Start().Format("2006-01-02"), df.End().Format("2006-01-02"),
				tickers[0], first.Start().Format("2006-01-02"), first.End().Format("2006-01-02"))
		}
	}

	merged, err := dfMap.DataFrame(tickers...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInput, err.Error())
	}

	// the merged frame shares memory with the cache
	prices := merged.Copy()

	if prices.Len() == 0 {
		return nil, ErrNoTradingDays
	}

	if err := ValidatePrices(prices); err != nil {
		return nil, err
	}

	log.Info().Strs("Tickers", tickers).Time("Start", prices.Start()).Time("End", prices.End()).Int("NumDays", prices.Len()).Msg("loaded prices")

	return prices, nil
}

func (p *csvProvider) loadTicker(ctx context.Context, ticker string) (*dataframe.DataFrame, error) {
	fn := filepath.Join(p.dir, fmt.Sprintf("%s.csv", strings.ToUpper(ticker)))
	subLog := log.With().Str("Ticker", ticker).Str("FileName", fn).Logger()

	fh, err := os.Open(fn)
	if err != nil {
		subLog.Error().Err(err).Msg("could not open price file")
		return nil, err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		subLog.Error().Err(err).Msg("could not stat price file")
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s:%s:%d:%d", ticker, fn, info.ModTime().UnixNano(), info.Size())
	if cached, ok := p.cache.Get(cacheKey); ok {
		subLog.Debug().Msg("using cached prices")
		return cached.(*dataframe.DataFrame), nil
	}

	floatConverter := imports.Converter{
		ConcreteType: float64(0),
		ConverterFunc: func(in interface{}) (interface{}, error) {
			v, err := strconv.ParseFloat(in.(string), 64)
			if err != nil {
				return math.NaN(), nil
			}
			return v, nil
		},
	}

	raw, err := imports.LoadFromCSV(ctx, fh, imports.CSVLoadOptions{
		DictateDataType: map[string]interface{}{
			ColumnDate: imports.Converter{
				ConcreteType: time.Time{},
				ConverterFunc: func(in interface{}) (interface{}, error) {
					return time.Parse("2006-01-02", strings.TrimSpace(in.(string)))
				},
			},
			ColumnAdjustedClose: floatConverter,
		},
	})
	if err != nil {
		subLog.Error().Err(err).Msg("could not parse price file")
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedInput, fn, err.Error())
	}

	dateIdx, err := raw.NameToColumn(ColumnDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, ColumnDate, fn)
	}

	closeIdx, err := raw.NameToColumn(ColumnAdjustedClose)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, ColumnAdjustedClose, fn)
	}

	df, err := seriesToDataFrame(ticker, raw.Series[dateIdx], raw.Series[closeIdx], raw.NRows())
	if err != nil {
		return nil, err
	}

	p.cache.Add(cacheKey, df)
	return df, nil
}

// seriesToDataFrame copies a date series and a value series into a single column dataframe, sorted by date
func seriesToDataFrame(name string, dates dfgo.Series, vals dfgo.Series, nrows int) (*dataframe.DataFrame, error) {
	df := &dataframe.DataFrame{
		Dates:    make([]time.Time, 0, nrows),
		ColNames: []string{name},
		Vals:     [][]float64{make([]float64, 0, nrows)},
	}

	for row := 0; row < nrows; row++ {
		dt, ok := dates.Value(row).(time.Time)
		if !ok {
			return nil, fmt.Errorf("%w: %s row %d has no date", ErrMalformedInput, name, row)
		}

		val := math.NaN()
		if v, ok := vals.Value(row).(float64); ok {
			val = v
		}

		if len(df.Dates) > 0 && !df.End().Before(dt) {
			return nil, fmt.Errorf("%w: %s dates are not strictly increasing at %s", ErrMalformedInput, name, dt.Format("2006-01-02"))
		}

		df.InsertRow(dt, val)
	}

	return df, nil
}
