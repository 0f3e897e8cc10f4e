// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"

	"github.com/gogama/httpq/transient"
)

// A Decider decides whether a failed queue should be resubmitted.
//
// Attempt is the number of retries already made for the queue, so it is
// zero when the queue failed for the first time. Err is the error the
// queue failed with.
//
// Implementations of Decider must be safe for concurrent use by multiple
// goroutines.
type Decider interface {
	Decide(attempt int, err error) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. Every DeciderFunc also has the logical
// composition methods And and Or.
type DeciderFunc func(attempt int, err error) bool

// Decide returns f(attempt, err).
func (f DeciderFunc) Decide(attempt int, err error) bool {
	return f(attempt, err)
}

// And composes two deciders into one which returns true only if both
// of them do. g is not evaluated if f returns false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(attempt int, err error) bool {
		return f(attempt, err) && g(attempt, err)
	}
}

// Or composes two deciders into one which returns true if either of
// them does. g is not evaluated if f returns true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(attempt int, err error) bool {
		return f(attempt, err) || g(attempt, err)
	}
}

// DefaultTimes is the number of retries allowed by DefaultDecider.
const DefaultTimes = 5

// DefaultDecider is the default retry decider. It allows DefaultTimes
// retries for transient errors and for the HTTP status codes 429, 502,
// 503 and 504.
var DefaultDecider = Times(DefaultTimes).And(TransientErr.Or(StatusCode(429, 502, 503, 504)))

// Times constructs a decider which allows up to n retries. A negative n
// is treated as zero.
func Times(n int) DeciderFunc {
	return func(attempt int, _ error) bool {
		return attempt < n
	}
}

// TransientErr is a decider which allows a retry if the error is
// transient according to transient.IsTransient. A canceled queue is
// never retried by TransientErr.
var TransientErr DeciderFunc = func(_ int, err error) bool {
	return transient.IsTransient(err)
}

// StatusCode constructs a decider which allows a retry if the queue
// failed because a server responded with one of the status codes in ss.
//
// The error is matched by looking through its chain for a value with an
// HTTPStatus method, which is how the scheduler reports unsuccessful
// HTTP responses.
func StatusCode(ss ...int) DeciderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(_ int, err error) bool {
		var h hasHTTPStatus
		if !errors.As(err, &h) {
			return false
		}
		code := h.HTTPStatus()
		for _, s := range ss2 {
			if code == s {
				return true
			}
		}
		return false
	}
}

type hasHTTPStatus interface {
	HTTPStatus() int
}
