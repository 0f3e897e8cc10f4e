// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"
)

// A Waiter chooses the pause between a queue's failure and its next
// submission. The attempt passed to Wait is the queue's RetryCount, so
// the pause before the first resubmission is Wait(0).
//
// A single Waiter is usually shared by every queue a caller retries,
// so implementations must be safe for concurrent use.
type Waiter interface {
	Wait(attempt int) time.Duration
}

// DefaultWaiter backs off from 50 milliseconds up to one second, with a
// random pause below each step so that queues failing together do not
// come back together.
var DefaultWaiter = NewExpWaiter(50*time.Millisecond, 1*time.Second, time.Now())

// NewFixedWaiter returns a Waiter that pauses for d before every
// resubmission. A zero d resubmits immediately.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixed(d)
}

type fixed time.Duration

func (f fixed) Wait(int) time.Duration { return time.Duration(f) }

// NewExpWaiter returns a Waiter whose pause doubles with every retry of
// a queue, starting at base and capped at max. Base must be positive
// and max must not be below base.
//
// With a nil jitter every pause is exactly the capped step. Otherwise
// the pause is drawn uniformly from [0, step), the "full jitter" scheme
// from https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter,
// using a generator seeded from jitter: a time.Time, an int, an int64, a
// rand.Source or a *rand.Rand.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("httpq/retry: base must be positive")
	}
	if max < base {
		panic("httpq/retry: max must be at least base")
	}
	return &backoff{base: base, max: max, rng: seedRand(jitter)}
}

type backoff struct {
	base, max time.Duration

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// step is base doubled attempt times, without exceeding max.
func (b *backoff) step(attempt int) time.Duration {
	if attempt <= 0 {
		return b.base
	}
	limit := int64(b.max / b.base)
	if attempt >= 62 || int64(1)<<uint(attempt) > limit {
		return b.max
	}
	return b.base << uint(attempt)
}

func (b *backoff) Wait(attempt int) time.Duration {
	s := b.step(attempt)
	if b.rng == nil {
		return s
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(b.rng.Int63n(int64(s)))
}

func seedRand(jitter interface{}) *rand.Rand {
	switch j := jitter.(type) {
	case nil:
		return nil
	case *rand.Rand:
		if j == nil {
			panic("httpq/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		return rand.New(j)
	case time.Time:
		return rand.New(rand.NewSource(j.UnixNano()))
	case int:
		return rand.New(rand.NewSource(int64(j)))
	case int64:
		return rand.New(rand.NewSource(j))
	default:
		panic("httpq/retry: invalid jitter type")
	}
}
