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

package usercf

import (
	"context"
	"fmt"
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/usercf/base/log"
	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scorer compares predictions with ground truth.
type Scorer func(predictions, truth []float64) float64

// RMSE is the root mean square error.
func RMSE(predictions, truth []float64) float64 {
	temp := make([]float64, len(predictions))
	floats.SubTo(temp, predictions, truth)
	floats.Mul(temp, temp)
	return math.Sqrt(stat.Mean(temp, nil))
}

// MAE is the mean absolute error.
func MAE(predictions, truth []float64) float64 {
	temp := make([]float64, len(predictions))
	floats.SubTo(temp, predictions, truth)
	for i := range temp {
		temp[i] = math.Abs(temp[i])
	}
	return stat.Mean(temp, nil)
}

// Evaluate predicts every test rating and scores the predictions.
func Evaluate(ctx context.Context, m *UserCF, testSet []dataset.Rating, jobs int, scorers ...Scorer) ([]float64, error) {
	queries := lo.Map(testSet, func(r dataset.Rating, _ int) dataset.Query {
		return dataset.Query{UserId: r.UserId, ItemId: r.ItemId}
	})
	predictions, err := m.BatchPredict(ctx, queries, jobs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	truth := lo.Map(testSet, func(r dataset.Rating, _ int) float64 {
		return r.Value
	})
	return lo.Map(scorers, func(scorer Scorer, _ int) float64 {
		return scorer(predictions, truth)
	}), nil
}

// CrossValidateResult contains the scores of a metric over all folds.
type CrossValidateResult struct {
	Name      string
	TestScore []float64
}

// MeanAndMargin returns the mean score and the largest deviation from it.
func (sv CrossValidateResult) MeanAndMargin() (float64, float64) {
	mean := stat.Mean(sv.TestScore, nil)
	margin := 0.0
	for _, score := range sv.TestScore {
		temp := math.Abs(score - mean)
		if temp > margin {
			margin = temp
		}
	}
	return mean, margin
}

// CrossValidate evaluates the model by k-fold cross validation with RMSE and
// MAE.
func CrossValidate(ctx context.Context, params model.Params, ratings []dataset.Rating, k int, seed int64, config *FitConfig) ([]CrossValidateResult, error) {
	if config == nil {
		config = NewFitConfig()
	}
	folds, err := dataset.KFold(ratings, k, seed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	results := []CrossValidateResult{
		{Name: "RMSE", TestScore: make([]float64, k)},
		{Name: "MAE", TestScore: make([]float64, k)},
	}
	for i, fold := range folds {
		m := NewUserCF(params)
		if err = m.Fit(ctx, fold.Train, config); err != nil {
			return nil, errors.Trace(err)
		}
		scores, err := Evaluate(ctx, m, fold.Test, config.Jobs, RMSE, MAE)
		if err != nil {
			return nil, errors.Trace(err)
		}
		coldUsers := mapset.NewSet[int32]()
		for _, r := range fold.Test {
			if !fold.Train.HasUser(r.UserId) {
				coldUsers.Add(r.UserId)
			}
		}
		for j := range results {
			results[j].TestScore[i] = scores[j]
		}
		log.Logger().Info(fmt.Sprintf("cross validate %v/%v", i+1, k),
			zap.Int("train_set_size", fold.Train.CountRatings()),
			zap.Int("test_set_size", len(fold.Test)),
			zap.Int("cold_users", coldUsers.Cardinality()),
			zap.Float64("RMSE", scores[0]),
			zap.Float64("MAE", scores[1]))
	}
	return results, nil
}
