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

import "github.com/gorse-io/usercf/dataset"

// Residual is what remains of a rating after removing its baseline.
type Residual struct {
	UserId int32
	Value  float64
}

// ProjectResiduals groups the residuals of all ratings by item. The result is
// indexed by item id and every list is ordered by ascending user id.
func ProjectResiduals(store *dataset.RatingStore, bias *Bias) [][]Residual {
	residuals := make([][]Residual, int(store.MaxItemId())+1)
	store.ForEach(func(userId, itemId int32, rating float64) {
		residuals[itemId] = append(residuals[itemId], Residual{
			UserId: userId,
			Value:  rating - bias.Baseline(userId, itemId),
		})
	})
	return residuals
}
