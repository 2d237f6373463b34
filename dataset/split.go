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

package dataset

import (
	"math/rand"

	"github.com/juju/errors"
)

// Fold is a train/test split of a rating list.
type Fold struct {
	Train *RatingStore
	Test  []Rating
}

// KFold splits ratings into k folds by a permutation seeded with seed. Each
// rating is tested exactly once. The training store of a fold keeps the input
// order of ratings so overwrites behave as in a full run.
func KFold(ratings []Rating, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, errors.NotValidf("number of folds %d", k)
	} else if len(ratings) < k {
		return nil, errors.Errorf("%d ratings cannot be split into %d folds", len(ratings), k)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(ratings))
	assign := make([]int, len(ratings))
	foldSize := len(ratings) / k
	begin, end := 0, 0
	for i := 0; i < k; i++ {
		end += foldSize
		if i < len(ratings)%k {
			end++
		}
		for _, index := range perm[begin:end] {
			assign[index] = i
		}
		begin = end
	}
	folds := make([]Fold, k)
	for i := range folds {
		folds[i].Train = NewRatingStore()
	}
	for index, rating := range ratings {
		for i := range folds {
			if assign[index] == i {
				folds[i].Test = append(folds[i].Test, rating)
			} else {
				folds[i].Train.Put(rating.UserId, rating.ItemId, rating.Value)
			}
		}
	}
	return folds, nil
}
