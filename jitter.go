// Copyright 2023-2025 Buf Technologies, Inc.
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

package rulepack

import (
	"hash/maphash"
	"math/rand"
	"sync"
	"time"
)

// Watchers started together by a build (one per rule set) would otherwise
// poll in lock step.
var rnd = newLockedRand() //nolint:gochecknoglobals

func addJitter(period time.Duration, jitter float64) time.Duration {
	factor := (rnd.Float64()*2 - 1) * jitter // between -jitter and jitter
	period = time.Duration(float64(period) * (factor + 1))
	if period <= 0 {
		period = 1 // timer.Reset needs a positive duration to wait at all
	}
	return period
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	i := s.src.Int63()
	s.mu.Unlock()
	return i
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	s.src.Seed(seed)
	s.mu.Unlock()
}

func newLockedRand() *rand.Rand {
	//nolint:gosec // don't need secure RNG for this and prefer something that can't exhaust entropy
	return rand.New(&lockedSource{src: rand.NewSource(int64(new(maphash.Hash).Sum64()))})
}
