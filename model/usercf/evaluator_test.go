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
	"math"
	"testing"

	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model"
	"github.com/stretchr/testify/assert"
)

func TestRMSE(t *testing.T) {
	assert.InDelta(t, math.Sqrt(4.0/3.0), RMSE([]float64{1, 2, 3}, []float64{1, 2, 5}), 1e-12)
	assert.Zero(t, RMSE([]float64{1, 2}, []float64{1, 2}))
}

func TestMAE(t *testing.T) {
	assert.InDelta(t, 2.0/3.0, MAE([]float64{1, 2, 3}, []float64{1, 2, 5}), 1e-12)
	assert.InDelta(t, 1.0, MAE([]float64{2, 4}, []float64{3, 3}), 1e-12)
}

func TestCrossValidateResult_MeanAndMargin(t *testing.T) {
	mean, margin := CrossValidateResult{Name: "RMSE", TestScore: []float64{1, 2, 3}}.MeanAndMargin()
	assert.Equal(t, 2.0, mean)
	assert.Equal(t, 1.0, margin)
}

func TestEvaluate(t *testing.T) {
	ratings := []dataset.Rating{
		{UserId: 0, ItemId: 0, Value: 5},
		{UserId: 1, ItemId: 0, Value: 2},
	}
	m := NewUserCF(model.Params{})
	assert.NoError(t, m.Fit(context.Background(), dataset.NewRatingStore(), nil))
	// an empty training set predicts the default mean everywhere
	scores, err := Evaluate(context.Background(), m, ratings, 2, RMSE, MAE)
	assert.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.5}, scores)
}

func TestCrossValidate(t *testing.T) {
	store := newRandomStore(4, 30, 20, 400)
	var ratings []dataset.Rating
	store.ForEach(func(userId, itemId int32, rating float64) {
		ratings = append(ratings, dataset.Rating{UserId: userId, ItemId: itemId, Value: rating})
	})
	results, err := CrossValidate(context.Background(), model.Params{model.K: 20}, ratings, 3, 0, NewFitConfig().SetJobs(2))
	assert.NoError(t, err)
	if assert.Len(t, results, 2) {
		assert.Equal(t, "RMSE", results[0].Name)
		assert.Equal(t, "MAE", results[1].Name)
		for i := 0; i < 3; i++ {
			assert.Greater(t, results[0].TestScore[i], 0.0)
			assert.GreaterOrEqual(t, results[0].TestScore[i], results[1].TestScore[i])
		}
	}
	// same seed, same folds
	again, err := CrossValidate(context.Background(), model.Params{model.K: 20}, ratings, 3, 0, NewFitConfig())
	assert.NoError(t, err)
	assert.Equal(t, results, again)

	_, err = CrossValidate(context.Background(), model.Params{}, ratings, 1, 0, nil)
	assert.Error(t, err)
}
