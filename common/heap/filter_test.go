// Copyright 2022 gorse Project Authors
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
package heap

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKFilter(t *testing.T) {
	// Test a adjacent vec
	a := NewTopKFilter[int32, float32](3)
	a.Push(10, 2)
	a.Push(20, 8)
	a.Push(30, 1)
	assert.Equal(t, []Elem[int32, float32]{
		{Value: 20, Weight: 8},
		{Value: 10, Weight: 2},
		{Value: 30, Weight: 1},
	}, a.PopAll())
	// Test a full adjacent vec
	a = NewTopKFilter[int32, float32](3)
	a.Push(10, 2)
	a.Push(20, 8)
	a.Push(30, 1)
	a.Push(40, 2)
	a.Push(50, 5)
	a.Push(12, 10)
	a.Push(67, 7)
	a.Push(32, 9)
	elems := a.PopAll()
	assert.Equal(t, []Elem[int32, float32]{
		{Value: 12, Weight: 10},
		{Value: 32, Weight: 9},
		{Value: 20, Weight: 8},
	}, elems)
}

func TestTopKStringFilter(t *testing.T) {
	a := NewTopKFilter[string, float64](3)
	a.Push("10", 2)
	a.Push("20", 8)
	a.Push("30", 1)
	a.Push("40", 2)
	a.Push("50", 5)
	a.Push("12", 10)
	a.Push("67", 7)
	a.Push("32", 9)
	elems := a.PopAll()
	assert.Equal(t, []Elem[string, float64]{
		{Value: "12", Weight: 10},
		{Value: "32", Weight: 9},
		{Value: "20", Weight: 8},
	}, elems)
}

func TestTopKFilterTies(t *testing.T) {
	a := NewTopKFilter[int32, float64](2)
	a.Push(7, 0.5)
	a.Push(3, 0.5)
	a.Push(5, 0.5)
	a.Push(1, 0.1)
	assert.Equal(t, []Elem[int32, float64]{
		{Value: 3, Weight: 0.5},
		{Value: 5, Weight: 0.5},
	}, a.PopAll())
	assert.Zero(t, a.Len())
}

func TestTopKFilterInsertionOrder(t *testing.T) {
	elems := make([]Elem[int32, float64], 200)
	for i := range elems {
		elems[i] = Elem[int32, float64]{Value: int32(i), Weight: float64(i % 7)}
	}
	expected := NewTopKFilter[int32, float64](10)
	for _, elem := range elems {
		expected.Push(elem.Value, elem.Weight)
	}
	want := expected.PopAll()
	rng := rand.New(rand.NewSource(0))
	for trial := 0; trial < 5; trial++ {
		rng.Shuffle(len(elems), func(i, j int) { elems[i], elems[j] = elems[j], elems[i] })
		filter := NewTopKFilter[int32, float64](10)
		for _, elem := range elems {
			filter.Push(elem.Value, elem.Weight)
		}
		assert.Equal(t, want, filter.PopAll())
	}
	assert.Len(t, want, 10)
	assert.Equal(t, Elem[int32, float64]{Value: 6, Weight: 6}, want[0])
}

func TestTopKFilterNaN(t *testing.T) {
	a := NewTopKFilter[int32, float64](3)
	assert.Panics(t, func() {
		a.Push(1, math.NaN())
	})
}
