// Copyright 2025 gorse Project Authors
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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorse-io/usercf/base/log"
	"github.com/gorse-io/usercf/base/progress"
	"github.com/gorse-io/usercf/cmd/version"
	"github.com/gorse-io/usercf/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "usercf",
	Short: "Rating prediction by bias-corrected user-based collaborative filtering.",
	Long: `Reads training ratings ("user item rating") followed by the line "test dataset"
and queries ("user item"), then writes one predicted rating per query.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		conf := setup(cmd)

		inputPath, _ := cmd.Flags().GetString("input")
		outputPath, _ := cmd.Flags().GetString("output")
		showProgress, _ := cmd.Flags().GetBool("progress")
		input, err := openInput(inputPath, showProgress)
		if err != nil {
			log.Logger().Fatal("failed to open input", zap.String("input", inputPath), zap.Error(err))
		}
		defer input.Close()
		output, err := openOutput(outputPath)
		if err != nil {
			log.Logger().Fatal("failed to open output", zap.String("output", outputPath), zap.Error(err))
		}
		defer output.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		tracer := progress.NewTracer("usercf")
		ctx, span := tracer.Start(ctx, "predict", 1)
		if err = predict(ctx, input, output, conf); err != nil {
			span.Fail(err)
			logProgress(tracer)
			log.Logger().Fatal("failed to predict", zap.Error(err))
		}
		span.End()
		logProgress(tracer)
		log.Logger().Info("predict complete", zap.Duration("time", span.Elapsed()))
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().IntP("jobs", "j", 1, "number of working jobs (overrides fit.jobs)")
	rootCommand.PersistentFlags().StringP("input", "i", "", "input file path (default stdin)")
	rootCommand.PersistentFlags().Bool("progress", false, "show a progress bar while reading an input file")
	rootCommand.Flags().BoolP("version", "v", false, "usercf version")
	rootCommand.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCommand.AddCommand(evaluateCommand, versionCommand)
}

// setup configures the logger and loads the config. Flags take precedence
// over the config file.
func setup(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)

	configPath, _ := cmd.Flags().GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.String("config", configPath), zap.Error(err))
	}
	if cmd.Flags().Changed("jobs") {
		conf.Fit.Jobs, _ = cmd.Flags().GetInt("jobs")
		if err = conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}
	}
	log.Logger().Debug("config loaded", zap.Any("config", conf))
	return conf
}

func logProgress(tracer *progress.Tracer) {
	for _, p := range tracer.List() {
		log.Logger().Debug("progress",
			zap.String("name", p.Name),
			zap.String("status", string(p.Status)),
			zap.String("error", p.Error),
			zap.Int("count", p.Count),
			zap.Int("total", p.Total),
			zap.Duration("elapsed", p.Elapsed))
	}
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
