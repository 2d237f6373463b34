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
	"io"
	"os"
	"os/signal"

	"github.com/gorse-io/usercf/base/log"
	"github.com/gorse-io/usercf/base/progress"
	"github.com/gorse-io/usercf/config"
	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model/usercf"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evaluateCommand = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the model by k-fold cross validation on training ratings.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		conf := setup(cmd)
		if cmd.Flags().Changed("folds") {
			conf.Evaluate.Folds, _ = cmd.Flags().GetInt("folds")
		}
		if cmd.Flags().Changed("seed") {
			conf.Evaluate.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		if err := conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}

		inputPath, _ := cmd.Flags().GetString("input")
		showProgress, _ := cmd.Flags().GetBool("progress")
		input, err := openInput(inputPath, showProgress)
		if err != nil {
			log.Logger().Fatal("failed to open input", zap.String("input", inputPath), zap.Error(err))
		}
		defer input.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		tracer := progress.NewTracer("usercf")
		ctx, span := tracer.Start(ctx, "evaluate", 1)
		if err = evaluate(ctx, input, os.Stdout, conf); err != nil {
			span.Fail(err)
			logProgress(tracer)
			log.Logger().Fatal("failed to evaluate", zap.Error(err))
		}
		span.End()
		logProgress(tracer)
		log.Logger().Info("evaluate complete", zap.Duration("time", span.Elapsed()))
	},
}

func init() {
	evaluateCommand.Flags().Int("folds", 5, "number of folds (overrides evaluate.folds)")
	evaluateCommand.Flags().Int64("seed", 0, "random seed of fold assignment (overrides evaluate.seed)")
}

// evaluate cross validates on the training ratings of r and renders the
// scores of every fold as a table.
func evaluate(ctx context.Context, r io.Reader, w io.Writer, conf *config.Config) error {
	ratings, err := dataset.LoadRatings(r)
	if err != nil {
		return errors.Trace(err)
	}
	results, err := usercf.CrossValidate(ctx, conf.Model.Params(), ratings,
		conf.Evaluate.Folds, conf.Evaluate.Seed, conf.Fit.GetFitConfig())
	if err != nil {
		return errors.Trace(err)
	}

	header := []any{""}
	for i := 1; i <= conf.Evaluate.Folds; i++ {
		header = append(header, fmt.Sprintf("Fold %d", i))
	}
	header = append(header, "Mean")
	table := tablewriter.NewWriter(w)
	table.Header(header...)
	for _, result := range results {
		row := []string{result.Name}
		for _, score := range result.TestScore {
			row = append(row, fmt.Sprintf("%.5f", score))
		}
		mean, margin := result.MeanAndMargin()
		row = append(row, fmt.Sprintf("%.5f(±%.5f)", mean, margin))
		if err = table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
