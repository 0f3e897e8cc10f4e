// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import "time"

// A Policy controls whether a failed queue is resubmitted and, if so,
// how long to wait before resubmitting it.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy is a general-purpose retry policy composed of
// DefaultDecider and DefaultWaiter.
var DefaultPolicy Policy = policy{DefaultDecider, DefaultWaiter}

// Never is a policy that never retries.
var Never Policy = policy{Times(0), DefaultWaiter}

type policy struct {
	decider Decider
	waiter  Waiter
}

// NewPolicy composes a Decider and a Waiter into a retry Policy.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil {
		panic("httpq/retry: nil decider")
	}
	if w == nil {
		panic("httpq/retry: nil waiter")
	}
	return policy{decider: d, waiter: w}
}

func (p policy) Decide(attempt int, err error) bool {
	return p.decider.Decide(attempt, err)
}

func (p policy) Wait(attempt int) time.Duration {
	return p.waiter.Wait(attempt)
}
