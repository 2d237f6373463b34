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

	"github.com/gorse-io/usercf/base/log"
	"github.com/gorse-io/usercf/base/progress"
	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model"
	"go.uber.org/zap"
)

// Bias is the baseline estimate of a rating:
//
//	b_{ui} = μ + b_u + b_i
//
// If user u is unknown, then the bias b_u is assumed to be zero. The same
// applies for item i with b_i.
type Bias struct {
	GlobalMean float64           // μ
	UserBias   map[int32]float64 // b_u
	ItemBias   []float64         // b_i, indexed by item id
}

func (b *Bias) User(userId int32) float64 {
	return b.UserBias[userId]
}

func (b *Bias) Item(itemId int32) float64 {
	if itemId >= 0 && int(itemId) < len(b.ItemBias) {
		return b.ItemBias[itemId]
	}
	return 0
}

// Baseline returns μ + b_u + b_i.
func (b *Bias) Baseline(userId, itemId int32) float64 {
	return b.GlobalMean + b.User(userId) + b.Item(itemId)
}

// BiasEstimator fits user and item biases by stochastic gradient descent.
// Updates are applied in place, so later ratings of a pass see the biases
// updated by earlier ones. A pass visits users in ascending order and the
// items of each user in ascending order.
//
// Hyper-parameters:
//
//	NEpochs		- The number of passes over all ratings. Default is 8.
//	Lr			- The learning rate. Default is 0.01.
//	Reg			- The regularization strength. Default is 0.02.
//	DefaultMean	- The global mean if there is no rating. Default is 3.5.
type BiasEstimator struct {
	nEpochs     int
	lr          float64
	reg         float64
	defaultMean float64
}

func NewBiasEstimator(params model.Params) *BiasEstimator {
	return &BiasEstimator{
		nEpochs:     params.GetInt(model.NEpochs, 8),
		lr:          params.GetFloat64(model.Lr, 0.01),
		reg:         params.GetFloat64(model.Reg, 0.02),
		defaultMean: params.GetFloat64(model.DefaultMean, 3.5),
	}
}

// Fit biases to the ratings in store. verbose is the number of passes between
// two log lines.
func (e *BiasEstimator) Fit(ctx context.Context, store *dataset.RatingStore, verbose int) *Bias {
	users := store.Users()
	userBias := make([]float64, len(users))
	itemBias := make([]float64, int(store.MaxItemId())+1)
	globalMean := store.GlobalMean(e.defaultMean)
	_, span := progress.Start(ctx, "BiasEstimator.Fit", e.nEpochs)
	for epoch := 1; epoch <= e.nEpochs; epoch++ {
		cost, count := 0.0, 0
		for u, userId := range users {
			items, ratings := store.UserRatings(userId)
			for j, itemId := range items {
				bu := userBias[u]
				bi := itemBias[itemId]
				diff := ratings[j] - (globalMean + bu + bi)
				userBias[u] += e.lr * (diff - e.reg*bu)
				itemBias[itemId] += e.lr * (diff - e.reg*bi)
				cost += diff * diff
				count++
			}
		}
		if verbose > 0 && (epoch%verbose == 0 || epoch == e.nEpochs) && count > 0 {
			log.Logger().Debug(fmt.Sprintf("fit bias %v/%v", epoch, e.nEpochs),
				zap.Float64("train_rmse", math.Sqrt(cost/float64(count))))
		}
		span.Add(1)
	}
	span.End()
	bias := &Bias{
		GlobalMean: globalMean,
		UserBias:   make(map[int32]float64, len(users)),
		ItemBias:   itemBias,
	}
	for u, userId := range users {
		bias.UserBias[userId] = userBias[u]
	}
	return bias
}
