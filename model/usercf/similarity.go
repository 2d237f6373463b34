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
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/gorse-io/usercf/common/parallel"
	"github.com/gorse-io/usercf/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// PairKey identifies an unordered pair of users, A < B.
type PairKey struct {
	A int32
	B int32
}

func NewPairKey(a, b int32) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// PairStats accumulates the residual products of two users over the items
// both of them rated.
type PairStats struct {
	Dot   float64
	Count int
}

// Accumulator holds pairwise dot products and per-user squared norms of
// residual vectors.
type Accumulator struct {
	Pairs      map[PairKey]PairStats
	Magnitudes map[int32]float64
}

// SortedPairs returns pair keys ordered by A, then B.
func (acc *Accumulator) SortedPairs() []PairKey {
	keys := lo.Keys(acc.Pairs)
	slices.SortFunc(keys, func(x, y PairKey) int {
		if x.A != y.A {
			return cmp.Compare(x.A, y.A)
		}
		return cmp.Compare(x.B, y.B)
	})
	return keys
}

// SimilarityEngine computes user-user similarity from residual co-occurrence:
//
//	s_{uv} = cos(r_u, r_v)^ρ · n_{uv} / (n_{uv} + λ)
//
// where n_{uv} is the number of items rated by both users. Pairs with
// non-positive cosine are dropped.
//
// Hyper-parameters:
//
//	Shrink		- The significance shrinkage λ. Default is 10.
//	AmpFactor	- The case amplification exponent ρ. Default is 1.3.
type SimilarityEngine struct {
	shrink    float64
	ampFactor float64
}

func NewSimilarityEngine(params model.Params) *SimilarityEngine {
	return &SimilarityEngine{
		shrink:    params.GetFloat64(model.Shrink, 10),
		ampFactor: params.GetFloat64(model.AmpFactor, 1.3),
	}
}

// Accumulate sums residual products for every pair of users co-rating an item
// and squared residuals for every user. Pairs are sharded over jobs by their
// smaller user id, so each sum is built in the same order whatever the number
// of jobs. Residual lists must be ordered by ascending user id.
func (e *SimilarityEngine) Accumulate(ctx context.Context, residuals [][]Residual, jobs int) (*Accumulator, error) {
	jobs = max(jobs, 1)
	shards := make([]map[PairKey]PairStats, jobs)
	err := parallel.For(ctx, jobs, jobs, func(shard int) {
		pairs := make(map[PairKey]PairStats)
		for _, list := range residuals {
			for a := 0; a < len(list); a++ {
				if int(list[a].UserId)%jobs != shard {
					continue
				}
				for b := a + 1; b < len(list); b++ {
					key := PairKey{A: list[a].UserId, B: list[b].UserId}
					stats := pairs[key]
					stats.Dot += list[a].Value * list[b].Value
					stats.Count++
					pairs[key] = stats
				}
			}
		}
		shards[shard] = pairs
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	magnitudes := make(map[int32]float64)
	for _, list := range residuals {
		for _, r := range list {
			magnitudes[r.UserId] += r.Value * r.Value
		}
	}
	return &Accumulator{
		Pairs:      lo.Assign(shards...),
		Magnitudes: magnitudes,
	}, nil
}

// RawCosine returns the cosine of two residual vectors given their dot product
// and squared norms. It is zero if either norm is zero.
func RawCosine(dot, magA, magB float64) float64 {
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Similarity returns the shrunk and amplified similarity of a pair, or zero if
// the pair is not positively correlated.
func (e *SimilarityEngine) Similarity(stats PairStats, magA, magB float64) float64 {
	rawSim := RawCosine(stats.Dot, magA, magB)
	if rawSim <= 0 {
		return 0
	}
	// significance weighting
	factor := float64(stats.Count) / (float64(stats.Count) + e.shrink)
	// case amplification
	ampSim := math.Pow(math.Abs(rawSim), e.ampFactor)
	if rawSim < 0 {
		ampSim = -ampSim
	}
	return ampSim * factor
}

// Candidates registers every positive similarity symmetrically: both users of
// a pair gain the other as a neighbor candidate.
func (e *SimilarityEngine) Candidates(acc *Accumulator) map[int32][]Neighbor {
	candidates := make(map[int32][]Neighbor)
	for _, key := range acc.SortedPairs() {
		sim := e.Similarity(acc.Pairs[key], acc.Magnitudes[key.A], acc.Magnitudes[key.B])
		if sim > 0 {
			candidates[key.A] = append(candidates[key.A], Neighbor{UserId: key.B, Similarity: sim})
			candidates[key.B] = append(candidates[key.B], Neighbor{UserId: key.A, Similarity: sim})
		}
	}
	return candidates
}
