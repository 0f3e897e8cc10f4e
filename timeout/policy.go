// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/httpq/request"
)

// A Policy decides the timeout for a descriptor's task.
//
// The returned duration bounds the wait for response headers and the
// idle time between reads of the response body. It is enforced by
// canceling the task, and the resulting error is reported like any
// other transport error.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Timeout(d *request.Descriptor) time.Duration
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as timeout policies.
type PolicyFunc func(d *request.Descriptor) time.Duration

// Timeout returns f(d).
func (f PolicyFunc) Timeout(d *request.Descriptor) time.Duration {
	return f(d)
}

// DefaultPolicy is the default timeout policy. Descriptors without a
// timeout of their own get 60 seconds.
var DefaultPolicy Policy = Fixed(60 * time.Second)

// Infinite is a policy which never times out descriptors that do not
// set their own timeout.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a policy which returns the descriptor's own timeout
// if it is positive, and fallback otherwise.
func Fixed(fallback time.Duration) Policy {
	return PolicyFunc(func(d *request.Descriptor) time.Duration {
		if d != nil && d.Timeout > 0 {
			return d.Timeout
		}
		return fallback
	})
}

// Downloads constructs a policy which uses fallback for ordinary
// descriptors and download for descriptors that stream to disk, unless
// the descriptor sets its own timeout. Large transfers are usually
// given a longer idle allowance than API calls.
func Downloads(fallback, download time.Duration) Policy {
	return PolicyFunc(func(d *request.Descriptor) time.Duration {
		switch {
		case d == nil:
			return fallback
		case d.Timeout > 0:
			return d.Timeout
		case d.Download.Enabled():
			return download
		default:
			return fallback
		}
	})
}
