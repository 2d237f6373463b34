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
	"slices"

	"github.com/gorse-io/usercf/common/heap"
	"github.com/gorse-io/usercf/common/parallel"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

type Neighbor struct {
	UserId     int32
	Similarity float64
}

// NeighborSelector keeps the k most similar neighbors of every user. Among
// neighbors of equal similarity, smaller user ids are kept.
type NeighborSelector struct {
	k int
}

func NewNeighborSelector(k int) *NeighborSelector {
	return &NeighborSelector{k: k}
}

// SelectOne returns the top k candidates ordered by decreasing similarity,
// then increasing user id.
func (s *NeighborSelector) SelectOne(candidates []Neighbor) []Neighbor {
	filter := heap.NewTopKFilter[int32, float64](s.k)
	for _, candidate := range candidates {
		filter.Push(candidate.UserId, candidate.Similarity)
	}
	return lo.Map(filter.PopAll(), func(elem heap.Elem[int32, float64], _ int) Neighbor {
		return Neighbor{UserId: elem.Value, Similarity: elem.Weight}
	})
}

// Select runs SelectOne for every user with candidates.
func (s *NeighborSelector) Select(ctx context.Context, candidates map[int32][]Neighbor, jobs int) (map[int32][]Neighbor, error) {
	users := lo.Keys(candidates)
	slices.Sort(users)
	selected := make([][]Neighbor, len(users))
	if err := parallel.For(ctx, len(users), jobs, func(i int) {
		selected[i] = s.SelectOne(candidates[users[i]])
	}); err != nil {
		return nil, errors.Trace(err)
	}
	neighbors := make(map[int32][]Neighbor, len(users))
	for i, userId := range users {
		neighbors[userId] = selected[i]
	}
	return neighbors, nil
}
