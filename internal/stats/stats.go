// Copyright 2026 The lx Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stats provides instrumentation counter primitives used by
// Context to report GC and allocation diagnostics.
package stats

import (
	"sync/atomic"

	"github.com/Beariish/lx/internal/sync2"
)

// Mean tracks a running average statistic.
//
// The zero value is ready to use. Concurrent writes are safe, but calling
// Get concurrently with other operations may result in a torn read.
type Mean struct {
	total, samples sync2.AtomicFloat64
}

// Record records a sample.
func (m *Mean) Record(sample float64) {
	m.total.Add(sample)
	m.samples.Add(1)
}

// Get returns the mean of all recorded samples, or zero if none were
// recorded.
func (m *Mean) Get() float64 {
	total, samples := m.total.Load(), m.samples.Load()
	if samples == 0 {
		return 0
	}
	return total / samples
}

// Counter is a monotonically-increasing diagnostic counter.
type Counter struct {
	value atomic.Int64
}

// Add adds delta to the counter and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	return c.value.Add(delta)
}

// Get returns the current counter value.
func (c *Counter) Get() int64 {
	return c.value.Load()
}
