// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"net/http"
	"time"

	"github.com/gogama/httpq/request"
	"github.com/sirupsen/logrus"
)

// The methods in this file run in the client's serial context.

func (q *Queue) fields() logrus.Fields {
	return logrus.Fields{
		"queue": q.id,
		"state": q.State(),
	}
}

// begin starts executing the queue in session s.
func (q *Queue) begin(s *session) {
	q.sess = s
	q.setState(Loading)
	q.client.logger.WithFields(q.fields()).WithField("cursor", q.cursor).Debug("queue admitted")
	q.advance()
}

// advance starts the task for the next descriptor, or ends the queue
// in Success if there is none. Tasks which end before reaching the
// network are completed in the loop rather than recursively.
func (q *Queue) advance() {
	for {
		d := q.descriptor(q.cursor)
		if d == nil {
			q.succeed()
			return
		}
		t := q.start(d)
		if t == nil {
			return
		}
		if !q.finishTask(t) {
			q.fail(rejection(t.exec))
			return
		}
	}
}

// start builds the request for d and launches its task. It returns a
// non-nil task only if the task ended before being launched.
func (q *Queue) start(d *request.Descriptor) *task {
	c := q.client
	e := &request.Execution{
		Descriptor:    d,
		Index:         q.cursor,
		Start:         time.Now(),
		BytesExpected: -1,
	}
	q.cursor++
	t := newTask(q, q.sess, e, c.timeoutPolicy.Timeout(d))
	q.active = t

	r, err := d.NewRequest(t.ctx, c.headers)
	if err != nil {
		t.result = &taskResult{err: err, total: -1}
		t.cancel(nil)
		close(t.stopped)
		return t
	}
	if d.Download.Enabled() && r.Header.Get("Accept-Encoding") == "" {
		r.Header.Set("Accept-Encoding", "identity")
	}
	e.Request = r
	c.handlers.run(BeforeTask, e)
	if e.Request != nil {
		r = e.Request
	}
	if r.Context() != t.ctx {
		r = r.WithContext(t.ctx)
	}

	c.logger.WithFields(q.fields()).WithFields(logrus.Fields{
		"url":   d.URL.String(),
		"index": e.Index,
	}).Debug("task started")
	q.updateProgress()
	go t.run(r)
	return nil
}

// finishTask records the outcome of t, fires the closing events, and
// runs the descriptor's decoder. It reports whether the queue should
// continue.
func (q *Queue) finishTask(t *task) bool {
	c := q.client
	e := t.exec
	res := t.result
	q.active = nil

	e.End = time.Now()
	e.Err = res.err
	if res.resp != nil {
		e.Response = res.resp
	}
	e.Body = res.body
	e.Path = res.path
	e.FromCache = res.fromCache
	e.BytesReceived = res.written
	if res.total >= 0 {
		e.BytesExpected = res.total
	}

	if res.err == nil {
		if res.fromCache {
			c.handlers.run(CacheHit, e)
			if preview := e.Descriptor.Preview; preview != nil {
				path := res.path
				c.notify.post(func() { preview(path) })
			}
		} else if e.Descriptor.Download.Enabled() {
			c.handlers.run(DownloadFinished, e)
		}
	}
	c.handlers.run(AfterTask, e)

	entry := c.logger.WithFields(q.fields()).WithFields(logrus.Fields{
		"url":        e.Descriptor.URL.String(),
		"index":      e.Index,
		"status":     e.StatusCode(),
		"from_cache": e.FromCache,
		"bytes":      e.BytesReceived,
	})
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	entry.Debug("task ended")

	var ok bool
	if dec := e.Descriptor.Decoder; dec != nil {
		ok = dec.Decode(e)
	} else {
		ok = e.Err == nil
	}
	q.updateProgress()
	return ok
}

// onTaskComplete is posted by a task goroutine when its task ends.
func (q *Queue) onTaskComplete(t *task) {
	if q.active != t {
		return
	}
	if q.finishTask(t) {
		q.advance()
	} else {
		q.fail(rejection(t.exec))
	}
}

// interrupt stops the active task and waits for its goroutine to exit.
// A task that had already succeeded completes normally; otherwise the
// cursor is rolled back so the descriptor runs again on resubmission.
// It reports true if the completed task was the queue's last, so the
// run is over and nothing is left to cancel.
func (q *Queue) interrupt() bool {
	t := q.active
	if t == nil {
		return false
	}
	t.cancel(ErrCanceled)
	<-t.stopped
	if res := t.result; res != nil && res.err == nil {
		if q.finishTask(t) {
			return q.descriptor(q.cursor) == nil
		}
	} else {
		q.active = nil
		e := t.exec
		e.End = time.Now()
		e.Err = ErrCanceled
		if res != nil {
			e.BytesReceived = res.written
		}
		q.client.handlers.run(AfterTask, e)
	}
	q.cursor = t.exec.Index
	q.updateProgress()
	return false
}

// onResponse is posted by a task goroutine when response headers
// arrive.
func (q *Queue) onResponse(t *task, resp *http.Response, total, offset int64) {
	if q.active != t {
		return
	}
	h := q.client.handlers
	e := t.exec
	e.Response = resp
	e.BytesExpected = total
	e.ResumeOffset = offset
	h.run(ResponseReceived, e)
	if resp.StatusCode == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") != "" {
		h.run(AuthChallenge, e)
	}
}

// onBytes is posted by a task goroutine as the body streams in.
func (q *Queue) onBytes(t *task) {
	t.progressPending.Store(false)
	if q.active != t {
		return
	}
	t.exec.BytesReceived = t.written.Load()
	q.client.handlers.run(BytesReceived, t.exec)
	q.updateProgress()
}

// onRedirect is posted from the session's redirect check.
func (q *Queue) onRedirect(t *task, to string) {
	if q.active != t {
		return
	}
	t.exec.Redirects++
	q.client.logger.WithFields(q.fields()).WithField("url", to).Debug("redirect")
	q.client.handlers.run(Redirect, t.exec)
}

func rejection(e *request.Execution) error {
	if e.Err != nil {
		return e.Err
	}
	return &DecodeError{Index: e.Index, URL: e.Descriptor.URL.String()}
}
