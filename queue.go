// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gogama/httpq/request"
	"github.com/google/uuid"
)

// State is the lifecycle state of a Queue.
type State int32

const (
	// Waiting means the queue has not started, or is waiting for
	// capacity in its client.
	Waiting State = iota
	// Loading means the queue is active and executing descriptors.
	Loading
	// Success means every descriptor completed and was accepted.
	Success
	// Failure means a descriptor's decoder rejected its task.
	Failure
	// Canceled means the queue was canceled before finishing.
	Canceled
)

var stateNames = []string{"Waiting", "Loading", "Success", "Failure", "Canceled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(?)"
	}
	return stateNames[s]
}

// Progress is a snapshot of how far a queue has got. Completed counts
// finished descriptors, and Fraction adds the transferred fraction of
// the descriptor in flight, scaled to the whole queue.
type Progress struct {
	Completed int
	Total     int
	Fraction  float64
}

// A Queue is an ordered list of descriptors executed one at a time.
//
// Build a queue with NewQueue and Append, then hand it to a Client with
// Submit. Descriptors may be appended while the queue runs. Once
// submitted, a queue belongs to that client for the rest of its life.
type Queue struct {
	id uuid.UUID

	mu          sync.Mutex
	descriptors []*request.Descriptor
	client      *Client
	closed      bool
	onComplete  func(error)
	onProgress  func(completed, total int, fraction float64)
	progress    Progress
	err         error
	done        chan struct{}
	finished    bool

	state   atomic.Int32
	retries atomic.Int32
	rewind  atomic.Bool

	// Owned by the client's serial context.
	cursor    int
	active    *task
	sess      *session
	scheduled bool
}

// NewQueue returns an empty queue in the Waiting state.
func NewQueue() *Queue {
	return &Queue{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
}

// ID returns the queue's unique identifier.
func (q *Queue) ID() uuid.UUID {
	return q.id
}

// Append adds a descriptor for url to the end of the queue. The
// descriptor starts as a GET, configure may change any of its fields,
// and it is frozen once Append returns.
func (q *Queue) Append(url string, configure func(*request.Descriptor)) error {
	d, err := request.NewDescriptor(url)
	if err != nil {
		return err
	}
	if configure != nil {
		configure(d)
	}
	if err = d.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.descriptors = append(q.descriptors, d)
	q.progress.Total = len(q.descriptors)
	return nil
}

// Len returns the number of descriptors in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.descriptors)
}

// State returns the queue's current state.
func (q *Queue) State() State {
	return State(q.state.Load())
}

// Progress returns the queue's most recent progress.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.progress
}

// OnComplete sets the function called each time a run of the queue
// ends. The error is nil on Success, ErrCanceled on cancellation, and
// the failing task's error otherwise.
func (q *Queue) OnComplete(f func(error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onComplete = f
}

// OnProgress sets the function called when the queue's progress
// changes.
func (q *Queue) OnProgress(f func(completed, total int, fraction float64)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onProgress = f
}

// Err returns the completion error of the most recent run.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// RetryCount returns the number of retries made through a RetryHandle.
func (q *Queue) RetryCount() int {
	return int(q.retries.Load())
}

// Wait blocks until the current run of the queue ends or ctx is done.
// It returns the completion error of the run, or the context error.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()
	select {
	case <-done:
		return q.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel cancels the queue and waits until its task, if any, has
// stopped. A partially transferred download is saved so that
// submitting the queue again resumes it. Cancel does nothing if the
// queue is neither waiting in nor active in a client. If the queue's
// last task had already finished successfully, the queue ends in
// Success rather than Canceled. Cancel must not be called from an
// event handler.
func (q *Queue) Cancel() {
	q.mu.Lock()
	c := q.client
	q.mu.Unlock()
	if c == nil {
		return
	}
	c.exec.sync(func() { c.cancelQueue(q) })
}

// Close cancels the queue and prevents further use of it. Like Cancel,
// it must not be called from an event handler.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Cancel()
	return nil
}

func (q *Queue) bind(c *Client) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.client != nil && q.client != c {
		return ErrQueueOwned
	}
	q.client = c
	return nil
}

func (q *Queue) setState(s State) {
	q.state.Store(int32(s))
}

func (q *Queue) remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.descriptors) - q.cursor
}

func (q *Queue) descriptor(i int) *request.Descriptor {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < len(q.descriptors) {
		return q.descriptors[i]
	}
	return nil
}

// prepare readies the queue for a new run as it enters the waiting
// line.
func (q *Queue) prepare() {
	if q.rewind.Swap(false) || q.State() == Failure {
		q.cursor = 0
	}
	q.scheduled = true
	q.setState(Waiting)
	q.mu.Lock()
	if q.finished {
		q.done = make(chan struct{})
		q.finished = false
	}
	q.err = nil
	q.mu.Unlock()
	q.updateProgress()
}

// discard ends a run that has no descriptors left to execute.
func (q *Queue) discard() {
	q.scheduled = false
	q.setState(Success)
	q.client.logger.WithField("queue", q.id).Debug("discarded queue with no remaining descriptors")
	q.mu.Lock()
	q.finished = true
	close(q.done)
	q.mu.Unlock()
	q.updateProgress()
}

func (q *Queue) succeed() {
	q.setState(Success)
	q.finish(nil, true)
}

func (q *Queue) fail(err error) {
	q.cursor = 0
	q.setState(Failure)
	q.finish(err, true)
}

// cancel interrupts the queue. A requeued queue goes back to Waiting
// without notifying anyone; otherwise the queue ends as Canceled.
//
// If the interrupted task had already completed the last descriptor,
// the queue ends in Success instead and cancel reports false. The
// caller still owns the queue's session either way.
func (q *Queue) cancel(requeue bool) bool {
	if q.interrupt() {
		q.setState(Success)
		q.finish(nil, false)
		return false
	}
	if requeue {
		q.sess = nil
		q.setState(Waiting)
		q.updateProgress()
		return true
	}
	q.setState(Canceled)
	q.finish(ErrCanceled, false)
	return true
}

// finish ends the current run. If release is true the client is told
// to free the queue's session; callers which canceled the queue have
// already done so.
func (q *Queue) finish(err error, release bool) {
	c := q.client
	q.scheduled = false
	q.sess = nil
	entry := c.logger.WithFields(q.fields())
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("queue finished")

	q.mu.Lock()
	q.err = err
	q.finished = true
	done := q.done
	onComplete := q.onComplete
	q.mu.Unlock()
	q.updateProgress()

	if release {
		c.done(q)
	}

	notified := c.notify.post(func() {
		if onComplete != nil {
			onComplete(err)
		}
		close(done)
	})
	if !notified {
		close(done)
	}
}

// updateProgress recomputes the progress snapshot and notifies the
// progress observer if it changed.
func (q *Queue) updateProgress() {
	q.mu.Lock()
	total := len(q.descriptors)
	completed := q.cursor
	frac := 0.0
	if t := q.active; t != nil {
		completed--
		frac = t.exec.Fraction()
	}
	p := Progress{Completed: completed, Total: total, Fraction: 1}
	if total > 0 {
		p.Fraction = (float64(completed) + frac) / float64(total)
	}
	changed := p != q.progress
	q.progress = p
	onProgress := q.onProgress
	q.mu.Unlock()

	if changed && onProgress != nil && q.client != nil {
		q.client.notify.post(func() {
			onProgress(p.Completed, p.Total, p.Fraction)
		})
	}
}
