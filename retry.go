// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"context"
	"time"

	"github.com/gogama/httpq/retry"
)

// A RetryHandle resubmits a queue to the scheduler it was bound to.
//
// Queues are never retried automatically. A caller which wants a failed
// or canceled queue to run again keeps a RetryHandle and calls one of
// its methods, typically from the queue's completion callback. Every
// retry starts the queue over from its first descriptor; downloads the
// queue already completed are normally satisfied from the cache.
type RetryHandle struct {
	s Submitter
	q *Queue
}

// NewRetryHandle binds q to s.
func NewRetryHandle(s Submitter, q *Queue) *RetryHandle {
	if s == nil {
		panic("httpq: nil submitter")
	}
	if q == nil {
		panic("httpq: nil queue")
	}
	return &RetryHandle{s: s, q: q}
}

// Queue returns the queue the handle retries.
func (h *RetryHandle) Queue() *Queue {
	return h.q
}

// Retry resubmits the queue immediately.
func (h *RetryHandle) Retry() error {
	h.q.retries.Add(1)
	h.q.rewind.Store(true)
	return h.s.Submit(h.q)
}

// RetryAfter waits for the duration w chooses for the queue's current
// retry count, then resubmits the queue. It returns the context error
// without resubmitting if ctx is done first.
func (h *RetryHandle) RetryAfter(ctx context.Context, w retry.Waiter) error {
	d := w.Wait(h.q.RetryCount())
	if d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return h.Retry()
}

// RetryIf consults p about err, the completion error of the queue's
// last run. If p decides to retry, RetryIf waits as p directs,
// resubmits the queue, and returns true.
func (h *RetryHandle) RetryIf(ctx context.Context, p retry.Policy, err error) (bool, error) {
	if err == nil || !p.Decide(h.q.RetryCount(), err) {
		return false, nil
	}
	if err := h.RetryAfter(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}
