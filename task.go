// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gogama/httpq/request"
)

const copyBufferSize = 32 * 1024

// A task executes one descriptor on its own goroutine. The goroutine
// never touches queue or client state directly: it reports through
// the client's serial context and leaves its outcome in result before
// closing stopped.
type task struct {
	q       *Queue
	sess    *session
	d       *request.Descriptor
	exec    *request.Execution // serial context only
	timeout time.Duration

	ctx     context.Context
	cancel  context.CancelCauseFunc
	stopped chan struct{}
	result  *taskResult

	timer           *time.Timer
	written         atomic.Int64
	progressPending atomic.Bool
}

type taskResult struct {
	resp      *http.Response
	body      []byte
	path      string
	written   int64
	total     int64
	fromCache bool
	err       error
}

func newTask(q *Queue, s *session, e *request.Execution, timeout time.Duration) *task {
	base, cancel := context.WithCancelCause(context.Background())
	t := &task{
		q:       q,
		sess:    s,
		d:       e.Descriptor,
		exec:    e,
		timeout: timeout,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	t.ctx = context.WithValue(base, taskKey{}, t)
	return t
}

func (t *task) run(r *http.Request) {
	defer close(t.stopped)
	var res *taskResult
	if t.d.Download.Enabled() {
		res = t.download(r)
	} else {
		res = t.fetch(r)
	}
	t.cancel(nil)
	t.result = res
	q := t.q
	t.sess.c.exec.post(func() { q.onTaskComplete(t) })
}

func (t *task) fetch(r *http.Request) *taskResult {
	res := &taskResult{total: -1}
	defer t.watch()()
	resp, err := t.sess.client.Do(r)
	if err != nil {
		res.err = t.transportError(r, err)
		return res
	}
	defer resp.Body.Close()
	t.touch()
	res.resp = resp
	res.total = resp.ContentLength
	t.postResponse(resp, res.total, 0)

	var buf bytes.Buffer
	res.written, err, _ = t.copy(&buf, resp.Body)
	if err != nil {
		res.err = t.transportError(r, err)
		return res
	}
	res.body = buf.Bytes()
	if res.body == nil {
		res.body = []byte{}
	}
	if !is2XX(resp.StatusCode) {
		res.err = statusError(resp)
	}
	return res
}

// watch arms the idle timeout and returns the function disarming it.
func (t *task) watch() func() {
	if t.timeout <= 0 {
		return func() {}
	}
	t.timer = time.AfterFunc(t.timeout, func() { t.cancel(errTaskTimeout) })
	return func() { t.timer.Stop() }
}

func (t *task) touch() {
	if t.timer != nil {
		t.timer.Reset(t.timeout)
	}
}

// copy streams src into dst, reporting progress as it goes. The local
// result is true when the error came from dst.
func (t *task) copy(dst io.Writer, src io.Reader) (n int64, err error, local bool) {
	buf := make([]byte, copyBufferSize)
	for {
		m, rerr := src.Read(buf)
		if m > 0 {
			t.touch()
			if _, werr := dst.Write(buf[:m]); werr != nil {
				return n, werr, true
			}
			n += int64(m)
			t.written.Store(n)
			t.progress()
		}
		if rerr == io.EOF {
			return n, nil, false
		} else if rerr != nil {
			return n, rerr, false
		}
	}
}

func (t *task) progress() {
	if t.progressPending.CompareAndSwap(false, true) {
		q := t.q
		t.sess.c.exec.post(func() { q.onBytes(t) })
	}
}

func (t *task) postResponse(resp *http.Response, total, offset int64) {
	q := t.q
	t.sess.c.exec.post(func() { q.onResponse(t, resp, total, offset) })
}

// transportError converts an error from the transport into the task's
// error, accounting for why the task's context was canceled.
func (t *task) transportError(r *http.Request, err error) error {
	cause := context.Cause(t.ctx)
	switch {
	case errors.Is(cause, ErrCanceled):
		return ErrCanceled
	case cause == errTaskTimeout:
		err = errTaskTimeout
	}
	return &TransportError{Err: urlErrorWrap(r, err)}
}

func is2XX(code int) bool {
	return code >= 200 && code < 300
}
