// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides policies for resubmitting a queue that ended
// in failure, and for how long to wait before doing so.
//
// The scheduler itself never retries. A failed queue stays failed until
// someone resubmits it, typically through httpq.RetryHandle, which
// consults a Policy:
//
//	decider := retry.Times(3).And(retry.StatusCode(503).Or(retry.TransientErr))
//	waiter := retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now())
//	policy := retry.NewPolicy(decider, waiter)
//
// If the built-in functionality is insufficient, fully custom retry
// policies can be created via custom implementations of Decider,
// Waiter, or Policy.
package retry
