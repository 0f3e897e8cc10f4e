// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gogama/httpq/cache"
	"github.com/gogama/httpq/internal/transport"
	"github.com/gogama/httpq/timeout"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// A Client schedules queues of HTTP requests with bounded concurrency.
//
// At most the concurrency limit of queues are active at once, each with
// a session of its own; further queues wait in FIFO order. Within a
// queue, descriptors run strictly one after another.
//
// All scheduling state is owned by a single goroutine, the client's
// serial context. Mutating methods such as Submit and CancelAll hand
// their work to it and return immediately; Stats and Queue.Cancel wait
// for it. Completion and progress callbacks run on a second goroutine,
// in order, so they may call back into the client freely.
//
// A Client must be created with NewClient and released with Close.
type Client struct {
	exec   *serial
	notify *serial
	closed atomic.Bool

	logger        logrus.FieldLogger
	store         *cache.Store
	handlers      *HandlerGroup
	timeoutPolicy timeout.Policy
	headers       http.Header
	maxRedirects  int
	newTransport  func() (http.RoundTripper, error)

	// Owned by the serial context.
	limit   int
	waiting []*Queue
	active  []*session
}

// Stats is a snapshot of the client's scheduling state.
type Stats struct {
	Limit   int
	Active  int
	Waiting int
}

// NewClient returns a client which runs at most concurrencyLimit queues
// at once. A limit below 1 is treated as 1.
func NewClient(concurrencyLimit int, opts ...Option) *Client {
	if concurrencyLimit < 1 {
		concurrencyLimit = 1
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		logger:        discard,
		timeoutPolicy: timeout.DefaultPolicy,
		headers: http.Header{
			"Accept":     {"*/*"},
			"User-Agent": {"httpq"},
		},
		maxRedirects: transport.DefaultMaxRedirects,
		limit:        concurrencyLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = cache.New(afero.NewOsFs(), defaultCacheRoot())
	}
	if c.newTransport == nil {
		f, err := transport.New(transport.Options{Logger: c.logger})
		if err != nil {
			panic(err)
		}
		c.newTransport = f.RoundTripper
	}
	c.exec = newSerial()
	c.notify = newSerial()
	return c
}

func defaultCacheRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "httpq")
}

// Cache returns the client's download cache.
func (c *Client) Cache() *cache.Store {
	return c.store
}

// Submit adds q to the back of the waiting line and runs admission.
//
// Submitting a queue which is already waiting or active does nothing.
// A queue which has finished, failed or been canceled may be submitted
// again: a failed queue starts over from its first descriptor, and a
// canceled queue resumes at the descriptor it was interrupted in.
func (c *Client) Submit(q *Queue) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := q.bind(c); err != nil {
		return err
	}
	if !c.exec.post(func() { c.enqueue(q) }) {
		return ErrClientClosed
	}
	return nil
}

// SetConcurrencyLimit changes the concurrency limit. Values below 1 are
// ignored. If the new limit is below the number of active queues, the
// most recently admitted ones are interrupted and put back at the front
// of the waiting line, keeping their relative order.
func (c *Client) SetConcurrencyLimit(n int) {
	if n < 1 {
		return
	}
	c.exec.post(func() { c.setLimit(n) })
}

func (c *Client) setLimit(n int) {
	c.limit = n
	if len(c.active) > n {
		excess := append([]*session(nil), c.active[n:]...)
		c.active = c.active[:n:n]
		requeued := make([]*Queue, 0, len(excess)+len(c.waiting))
		for _, s := range excess {
			if s.q.cancel(true) {
				requeued = append(requeued, s.q)
			}
			s.finalize()
		}
		c.logger.WithFields(logrus.Fields{
			"action":   "requeue",
			"limit":    n,
			"requeued": len(requeued),
		}).Info("concurrency limit lowered")
		c.waiting = append(requeued, c.waiting...)
	}
	c.admit()
}

// CancelAll cancels every active queue. Waiting queues are untouched,
// and none of them is admitted until the next Submit or limit change.
func (c *Client) CancelAll() {
	c.exec.post(c.cancelAll)
}

// CancelWhere cancels every waiting or active queue for which pred
// returns true, then admits waiting queues into the freed capacity.
// Pred runs in the serial context.
func (c *Client) CancelWhere(pred func(*Queue) bool) {
	c.exec.post(func() {
		waiting := c.waiting[:0]
		for _, q := range c.waiting {
			if pred(q) {
				q.cancel(false)
			} else {
				waiting = append(waiting, q)
			}
		}
		for i := len(waiting); i < len(c.waiting); i++ {
			c.waiting[i] = nil
		}
		c.waiting = waiting

		active := c.active[:0]
		var canceled []*session
		for _, s := range c.active {
			if pred(s.q) {
				canceled = append(canceled, s)
			} else {
				active = append(active, s)
			}
		}
		c.active = active
		for _, s := range canceled {
			s.q.cancel(false)
			s.finalize()
		}
		c.admit()
	})
}

// Stats returns the current scheduling state. It must not be called
// from an event handler.
func (c *Client) Stats() Stats {
	var st Stats
	if !c.exec.sync(func() {
		st = Stats{Limit: c.limit, Active: len(c.active), Waiting: len(c.waiting)}
	}) {
		return Stats{}
	}
	return st
}

// Close cancels every active and waiting queue and stops the client.
// Completion callbacks for the canceled queues still run. Close always
// returns nil.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.exec.sync(func() {
		c.cancelAll()
		for _, q := range c.waiting {
			q.cancel(false)
		}
		c.waiting = nil
	})
	c.exec.close()
	c.notify.close()
	return nil
}

func (c *Client) enqueue(q *Queue) {
	if q.scheduled {
		return
	}
	if c.closed.Load() {
		return
	}
	q.prepare()
	c.waiting = append(c.waiting, q)
	c.admit()
}

func (c *Client) admit() {
	for len(c.waiting) > 0 && len(c.active) < c.limit {
		q := c.waiting[0]
		c.waiting[0] = nil
		c.waiting = c.waiting[1:]
		if q.remaining() == 0 {
			q.discard()
			continue
		}
		s, err := c.openSession(q)
		if err != nil {
			q.scheduled = false
			q.fail(err)
			continue
		}
		c.active = append(c.active, s)
		q.begin(s)
	}
}

// done is called by a queue which reached Success or Failure.
func (c *Client) done(q *Queue) {
	for i, s := range c.active {
		if s.q == q {
			c.active = append(c.active[:i], c.active[i+1:]...)
			s.finalize()
			break
		}
	}
	c.admit()
}

// cancelQueue cancels q wherever it is in the client.
func (c *Client) cancelQueue(q *Queue) {
	for i, w := range c.waiting {
		if w == q {
			c.waiting = append(c.waiting[:i], c.waiting[i+1:]...)
			q.cancel(false)
			return
		}
	}
	for i, s := range c.active {
		if s.q == q {
			c.active = append(c.active[:i], c.active[i+1:]...)
			q.cancel(false)
			s.finalize()
			c.admit()
			return
		}
	}
}

func (c *Client) cancelAll() {
	active := c.active
	c.active = nil
	for _, s := range active {
		s.q.cancel(false)
		s.finalize()
	}
}
