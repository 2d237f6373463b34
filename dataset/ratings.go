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
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Rating is a single (user, item, rating) training record.
type Rating struct {
	UserId int32
	ItemId int32
	Value  float64
}

// RatingStore holds the sparse user-item rating matrix. At most one rating is
// kept per (user, item) pair: a later put overwrites the earlier one. The
// running sum and count cover every put, overwritten ones included.
//
// Reads are safe for concurrent use once ingestion is done. Put must not run
// concurrently with any other method.
type RatingStore struct {
	ratings   map[int32]map[int32]float64
	sum       float64
	count     int
	maxUserId int32
	maxItemId int32

	// sorted view, rebuilt on the first read after a write
	mu     sync.Mutex
	users  []int32
	items  [][]int32
	values [][]float64
}

func NewRatingStore() *RatingStore {
	return &RatingStore{ratings: make(map[int32]map[int32]float64)}
}

// NewRatingStoreFrom builds a store from ratings in the given order.
func NewRatingStoreFrom(ratings []Rating) *RatingStore {
	store := NewRatingStore()
	for _, r := range ratings {
		store.Put(r.UserId, r.ItemId, r.Value)
	}
	return store
}

// Put inserts or overwrites a rating.
func (s *RatingStore) Put(userId, itemId int32, rating float64) {
	row, exist := s.ratings[userId]
	if !exist {
		row = make(map[int32]float64)
		s.ratings[userId] = row
	}
	row[itemId] = rating
	s.sum += rating
	s.count++
	s.maxUserId = max(s.maxUserId, userId)
	s.maxItemId = max(s.maxItemId, itemId)
	s.mu.Lock()
	s.users, s.items, s.values = nil, nil, nil
	s.mu.Unlock()
}

// RatingOf returns the rating given by a user to an item, if any.
func (s *RatingStore) RatingOf(userId, itemId int32) (float64, bool) {
	row, exist := s.ratings[userId]
	if !exist {
		return 0, false
	}
	rating, exist := row[itemId]
	return rating, exist
}

func (s *RatingStore) HasUser(userId int32) bool {
	_, exist := s.ratings[userId]
	return exist
}

// GlobalMean returns the mean of all ingested ratings, or _default if
// nothing has been ingested.
func (s *RatingStore) GlobalMean(_default float64) float64 {
	if s.count == 0 {
		return _default
	}
	return s.sum / float64(s.count)
}

func (s *RatingStore) MaxUserId() int32 {
	return s.maxUserId
}

func (s *RatingStore) MaxItemId() int32 {
	return s.maxItemId
}

// CountRecords returns the number of puts.
func (s *RatingStore) CountRecords() int {
	return s.count
}

func (s *RatingStore) CountUsers() int {
	return len(s.ratings)
}

// CountRatings returns the number of distinct (user, item) pairs.
func (s *RatingStore) CountRatings() int {
	n := 0
	for _, row := range s.ratings {
		n += len(row)
	}
	return n
}

// Users returns user ids in ascending order.
func (s *RatingStore) Users() []int32 {
	users, _, _ := s.index()
	return users
}

// UserRatings returns the items rated by a user in ascending order with the
// aligned ratings.
func (s *RatingStore) UserRatings(userId int32) ([]int32, []float64) {
	users, items, values := s.index()
	i, found := slices.BinarySearch(users, userId)
	if !found {
		return nil, nil
	}
	return items[i], values[i]
}

// ForEach visits every rating ordered by user, then by item.
func (s *RatingStore) ForEach(fn func(userId, itemId int32, rating float64)) {
	users, items, values := s.index()
	for i, userId := range users {
		for j, itemId := range items[i] {
			fn(userId, itemId, values[i][j])
		}
	}
}

func (s *RatingStore) index() ([]int32, [][]int32, [][]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users != nil || len(s.ratings) == 0 {
		return s.users, s.items, s.values
	}
	users := lo.Keys(s.ratings)
	slices.Sort(users)
	items := make([][]int32, len(users))
	values := make([][]float64, len(users))
	for i, userId := range users {
		row := s.ratings[userId]
		items[i] = lo.Keys(row)
		slices.Sort(items[i])
		values[i] = make([]float64, len(items[i]))
		for j, itemId := range items[i] {
			values[i][j] = row[itemId]
		}
	}
	s.users, s.items, s.values = users, items, values
	return users, items, values
}
