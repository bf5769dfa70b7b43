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
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/ivbt/common"
	"github.com/penny-vault/ivbt/observability/opentelemetry"
)

var shutdownTracer func(context.Context) error

func init() {
	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "Format log messages for humans instead of as JSON")

	// OpenTelemetry
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP collector to send traces to, if blank tracing is disabled")
	rootCmd.PersistentFlags().Bool("otlp-http", false, "Use OTLP over HTTP instead of gRPC")

	bindRootFlags()
}

func bindRootFlags() {
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
	viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))
	viper.BindPFlag("otlp.http", rootCmd.PersistentFlags().Lookup("otlp-http"))
}

var rootCmd = &cobra.Command{
	Use:     "ivbt",
	Version: common.CurrentVersion.String(),
	SilenceUsage: true,
	Short:   "Backtest a monthly rebalanced inverse volatility portfolio",
	Long: `ivbt simulates a portfolio of ETFs that is rebalanced on the last trading day of every month
so that each holding is weighted by the inverse of its recent volatility.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.SetupLogging()

		shutdown, err := opentelemetry.Setup()
		if err != nil {
			log.Error().Err(err).Msg("could not configure tracing")
			return err
		}
		shutdownTracer = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdownTracer == nil {
			return
		}
		if err := shutdownTracer(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
