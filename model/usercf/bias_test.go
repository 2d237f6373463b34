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
	"testing"

	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model"
	"github.com/stretchr/testify/assert"
)

func TestBiasEstimator_Empty(t *testing.T) {
	bias := NewBiasEstimator(model.Params{}).Fit(context.Background(), dataset.NewRatingStore(), 0)
	assert.Equal(t, 3.5, bias.GlobalMean)
	assert.Empty(t, bias.UserBias)
	assert.Equal(t, 3.5, bias.Baseline(0, 0))
	assert.Equal(t, 3.5, bias.Baseline(100, 100))
}

func TestBiasEstimator_OneEpoch(t *testing.T) {
	store := dataset.NewRatingStoreFrom([]dataset.Rating{
		{UserId: 0, ItemId: 0, Value: 4},
		{UserId: 0, ItemId: 1, Value: 2},
		{UserId: 1, ItemId: 0, Value: 3},
	})
	bias := NewBiasEstimator(model.Params{model.NEpochs: 1}).Fit(context.Background(), store, 1)
	assert.Equal(t, 3.0, bias.GlobalMean)
	// updates are applied in place: user 0 item 0, user 0 item 1, user 1 item 0
	assert.InDelta(t, -0.000102, bias.User(0), 1e-12)
	assert.InDelta(t, -0.0001, bias.User(1), 1e-12)
	assert.InDelta(t, 0.009898, bias.Item(0), 1e-12)
	assert.InDelta(t, -0.0101, bias.Item(1), 1e-12)
	assert.Zero(t, bias.User(2))
	assert.Zero(t, bias.Item(2))
	assert.Zero(t, bias.Item(-1))
}

func TestBiasEstimator_SingleRating(t *testing.T) {
	store := dataset.NewRatingStoreFrom([]dataset.Rating{{UserId: 3, ItemId: 7, Value: 4.5}})
	for _, nEpochs := range []int{0, 1, 8, 50} {
		bias := NewBiasEstimator(model.Params{model.NEpochs: nEpochs}).Fit(context.Background(), store, 0)
		assert.Equal(t, 4.5, bias.Baseline(3, 7))
	}
}

func TestBiasEstimator_Convergence(t *testing.T) {
	store := dataset.NewRatingStoreFrom([]dataset.Rating{
		{UserId: 1, ItemId: 1, Value: 5},
		{UserId: 2, ItemId: 1, Value: 1},
	})
	prev := 0.0
	for nEpochs := 0; nEpochs < 60; nEpochs++ {
		bias := NewBiasEstimator(model.Params{model.NEpochs: nEpochs}).Fit(context.Background(), store, 0)
		baseline := bias.Baseline(1, 1)
		if nEpochs == 0 {
			assert.Equal(t, 3.0, baseline)
		} else {
			assert.Greater(t, baseline, prev)
			assert.Less(t, baseline, 5.0)
		}
		prev = baseline
	}
}

func TestProjectResiduals(t *testing.T) {
	store := dataset.NewRatingStoreFrom([]dataset.Rating{
		{UserId: 2, ItemId: 1, Value: 4},
		{UserId: 0, ItemId: 1, Value: 2},
		{UserId: 1, ItemId: 3, Value: 5},
	})
	bias := &Bias{
		GlobalMean: 3,
		UserBias:   map[int32]float64{0: -0.5, 1: 0.5, 2: 0},
		ItemBias:   []float64{0, 0.25, 0, -1},
	}
	residuals := ProjectResiduals(store, bias)
	assert.Len(t, residuals, 4)
	assert.Empty(t, residuals[0])
	assert.Equal(t, []Residual{{UserId: 0, Value: -0.75}, {UserId: 2, Value: 0.75}}, residuals[1])
	assert.Empty(t, residuals[2])
	assert.Equal(t, []Residual{{UserId: 1, Value: 2.5}}, residuals[3])
}
