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

package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
	StatusRunning  Status = "Running"
	StatusFailed   Status = "Failed"
)

// Tracer collects the spans of a single run.
type Tracer struct {
	name  string
	mu    sync.Mutex
	spans []*Span
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := newSpan(name, total)
	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of every span, children following their parent.
func (t *Tracer) List() []Progress {
	t.mu.Lock()
	spans := make([]*Span, len(t.spans))
	copy(spans, t.spans)
	t.mu.Unlock()
	var progress []Progress
	for _, span := range spans {
		progress = span.collect(t.name, "", progress)
	}
	return progress
}

type Span struct {
	name     string
	total    int
	count    *atomic.Int64
	mu       sync.Mutex
	status   Status
	err      error
	start    time.Time
	finish   time.Time
	children []*Span
}

func newSpan(name string, total int) *Span {
	return &Span{
		name:   name,
		total:  total,
		count:  atomic.NewInt64(0),
		status: StatusRunning,
		start:  time.Now(),
	}
}

// Add is safe to call from multiple goroutines.
func (s *Span) Add(n int) {
	s.count.Add(int64(n))
}

func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count.Store(int64(s.total))
	if s.status == StatusRunning {
		s.status = StatusComplete
	}
	s.finish = time.Now()
}

func (s *Span) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.status = StatusFailed
	if s.finish.IsZero() {
		s.finish = time.Now()
	}
}

func (s *Span) Count() int {
	return int(s.count.Load())
}

// Elapsed returns the running time of the span, up to now if not finished.
func (s *Span) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finish.IsZero() {
		return time.Since(s.start)
	}
	return s.finish.Sub(s.start)
}

func (s *Span) collect(tracer, prefix string, progress []Progress) []Progress {
	s.mu.Lock()
	p := Progress{
		Tracer:     tracer,
		Name:       prefix + s.name,
		Status:     s.status,
		Count:      int(s.count.Load()),
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	if s.err != nil {
		p.Error = s.err.Error()
	}
	children := make([]*Span, len(s.children))
	copy(children, s.children)
	s.mu.Unlock()
	p.Elapsed = s.Elapsed()
	progress = append(progress, p)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].start.Before(children[j].start)
	})
	for _, child := range children {
		progress = child.collect(tracer, p.Name+"/", progress)
	}
	return progress
}

// Start creates a child span of the span carried by ctx. A detached span is
// returned if ctx carries no span.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	childSpan := newSpan(name, total)
	if ctx == nil {
		return context.Background(), childSpan
	}
	span, ok := ctx.Value(spanKeyName).(*Span)
	if !ok {
		return ctx, childSpan
	}
	span.mu.Lock()
	span.children = append(span.children, childSpan)
	span.mu.Unlock()
	return context.WithValue(ctx, spanKeyName, childSpan), childSpan
}

// Fail marks the span carried by ctx as failed.
func Fail(ctx context.Context, err error) {
	if span, ok := ctx.Value(spanKeyName).(*Span); ok {
		span.Fail(err)
	}
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
	Elapsed    time.Duration
}
