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
	"time"

	"github.com/gorse-io/usercf/base/log"
	"github.com/gorse-io/usercf/base/progress"
	"github.com/gorse-io/usercf/common/parallel"
	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type FitConfig struct {
	Jobs    int
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 1,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

// UserCF is the bias-aware user-based collaborative filtering model. The
// rating of user u for item i is predicted by:
//
//	\hat{r}_{ui} = b_{ui} + \frac{\sum_{v \in N^k(u) \cap U_i} s_{uv} (r_{vi} - b_{vi})}{\sum_{v \in N^k(u) \cap U_i} |s_{uv}|}
//
// where b_{ui} is the baseline, N^k(u) the k most similar neighbors of u and
// U_i the users who rated i.
//
// Hyper-parameters:
//
//	K	- The number of neighbors kept per user. Default is 190.
//
// See BiasEstimator and SimilarityEngine for the other hyper-parameters.
type UserCF struct {
	params model.Params
	k      int

	store       *dataset.RatingStore
	bias        *Bias
	accumulator *Accumulator
	neighbors   map[int32][]Neighbor
}

// NewUserCF creates a user-based model.
func NewUserCF(params model.Params) *UserCF {
	m := new(UserCF)
	m.SetParams(params)
	return m
}

// SetParams keeps a copy of params, so later changes by the caller have no
// effect on the model.
func (m *UserCF) SetParams(params model.Params) {
	m.params = params.Copy()
	m.k = params.GetInt(model.K, 190)
}

func (m *UserCF) GetParams() model.Params {
	return m.params
}

// Fit the model. Stages run one after another and every stage output is read
// only afterwards.
func (m *UserCF) Fit(ctx context.Context, store *dataset.RatingStore, config *FitConfig) error {
	if config == nil {
		config = NewFitConfig()
	}
	log.Logger().Info("fit user-based cf",
		zap.Int("n_users", store.CountUsers()),
		zap.Int("n_ratings", store.CountRatings()),
		zap.Int32("max_user_id", store.MaxUserId()),
		zap.Int32("max_item_id", store.MaxItemId()),
		zap.String("params", m.params.ToString()),
		zap.Any("config", config))
	ctx, span := progress.Start(ctx, "UserCF.Fit", 4)
	m.store = store

	// fit biases
	start := time.Now()
	m.bias = NewBiasEstimator(m.params).Fit(ctx, store, config.Verbose)
	span.Add(1)
	log.Logger().Info("fit biases complete",
		zap.Float64("global_mean", m.bias.GlobalMean),
		zap.Duration("time", time.Since(start)))

	// project residuals
	start = time.Now()
	residuals := ProjectResiduals(store, m.bias)
	span.Add(1)
	log.Logger().Info("project residuals complete",
		zap.Int("n_items", len(residuals)),
		zap.Duration("time", time.Since(start)))

	// accumulate similarity
	start = time.Now()
	engine := NewSimilarityEngine(m.params)
	accumulator, err := engine.Accumulate(ctx, residuals, config.Jobs)
	if err != nil {
		progress.Fail(ctx, err)
		return errors.Trace(err)
	}
	m.accumulator = accumulator
	candidates := engine.Candidates(accumulator)
	span.Add(1)
	log.Logger().Info("compute similarity complete",
		zap.Int("n_pairs", len(accumulator.Pairs)),
		zap.Int("n_users_with_candidates", len(candidates)),
		zap.Duration("time", time.Since(start)))

	// select neighbors
	start = time.Now()
	m.neighbors, err = NewNeighborSelector(m.k).Select(ctx, candidates, config.Jobs)
	if err != nil {
		progress.Fail(ctx, err)
		return errors.Trace(err)
	}
	span.End()
	log.Logger().Info("select neighbors complete",
		zap.Int("k", m.k),
		zap.Duration("time", time.Since(start)))
	return nil
}

// Predict the rating given by a user to an item. Unknown users and items fall
// back to the baseline. The prediction is not clamped to any rating scale.
func (m *UserCF) Predict(userId, itemId int32) float64 {
	if m.bias == nil {
		return m.params.GetFloat64(model.DefaultMean, 3.5)
	}
	baseline := m.bias.Baseline(userId, itemId)
	weightedSum, sumOfWeights := 0.0, 0.0
	for _, neighbor := range m.neighbors[userId] {
		if rating, exist := m.store.RatingOf(neighbor.UserId, itemId); exist {
			residual := rating - m.bias.Baseline(neighbor.UserId, itemId)
			weightedSum += residual * neighbor.Similarity
			sumOfWeights += math.Abs(neighbor.Similarity)
		}
	}
	if sumOfWeights > 0 {
		return baseline + weightedSum/sumOfWeights
	}
	return baseline
}

// BatchPredict predicts queries with jobs goroutines. Results keep the order
// of queries.
func (m *UserCF) BatchPredict(ctx context.Context, queries []dataset.Query, jobs int) ([]float64, error) {
	predictions := make([]float64, len(queries))
	_, span := progress.Start(ctx, "UserCF.BatchPredict", len(queries))
	err := parallel.For(ctx, len(queries), jobs, func(i int) {
		predictions[i] = m.Predict(queries[i].UserId, queries[i].ItemId)
		span.Add(1)
	})
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	span.End()
	return predictions, nil
}

// Bias returns fitted biases, nil before Fit.
func (m *UserCF) Bias() *Bias {
	return m.bias
}

// Neighbors returns the neighbors of a user ordered by decreasing similarity,
// then increasing user id.
func (m *UserCF) Neighbors(userId int32) []Neighbor {
	return m.neighbors[userId]
}

// Pair returns accumulated statistics of two users.
func (m *UserCF) Pair(a, b int32) (PairStats, bool) {
	if m.accumulator == nil {
		return PairStats{}, false
	}
	stats, exist := m.accumulator.Pairs[NewPairKey(a, b)]
	return stats, exist
}

// Magnitude returns the squared norm of the residual vector of a user.
func (m *UserCF) Magnitude(userId int32) float64 {
	if m.accumulator == nil {
		return 0
	}
	return m.accumulator.Magnitudes[userId]
}
