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

package cmd

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type logSection struct {
	Level        string `toml:"level"`
	Output       string `toml:"output"`
	Pretty       bool   `toml:"pretty"`
	ReportCaller bool   `toml:"report_caller"`
}

type otlpSection struct {
	Endpoint string `toml:"endpoint"`
	HTTP     bool   `toml:"http"`
}

type backtestSection struct {
	InitialCapital float64  `toml:"initial_capital"`
	RiskFreeRate   float64  `toml:"risk_free_rate"`
	StartDate      string   `toml:"start_date"`
	EndDate        string   `toml:"end_date"`
	Lookback       int      `toml:"lookback"`
	Tickers        []string `toml:"tickers"`
	DataDir        string   `toml:"data_dir"`
	OutputDir      string   `toml:"output_dir"`
}

// configFile mirrors the layout of config.toml
type configFile struct {
	Log      logSection      `toml:"log"`
	OTLP     otlpSection     `toml:"otlp"`
	Backtest backtestSection `toml:"backtest"`
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// effectiveConfig collects the settings that would be used by a backtest run
func effectiveConfig() (*configFile, error) {
	cfg, err := configFromViper()
	if err != nil {
		return nil, err
	}

	return &configFile{
		Log: logSection{
			Level:        viper.GetString("log.level"),
			Output:       viper.GetString("log.output"),
			Pretty:       viper.GetBool("log.pretty"),
			ReportCaller: viper.GetBool("log.report_caller"),
		},
		OTLP: otlpSection{
			Endpoint: viper.GetString("otlp.endpoint"),
			HTTP:     viper.GetBool("otlp.http"),
		},
		Backtest: backtestSection{
			InitialCapital: cfg.InitialCapital,
			RiskFreeRate:   cfg.RiskFreeRate,
			StartDate:      cfg.StartDate.Format("2006-01-02"),
			EndDate:        cfg.EndDate.Format("2006-01-02"),
			Lookback:       cfg.Lookback,
			Tickers:        cfg.Tickers,
			DataDir:        cfg.DataDir,
			OutputDir:      cfg.OutputDir,
		},
	}, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long: `Print the configuration assembled from config.toml, IVBT_* environment variables, and the
command line. The output can be saved as config.toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := effectiveConfig()
		if err != nil {
			return err
		}

		doc, err := toml.Marshal(conf)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), string(doc))
		return nil
	},
}
