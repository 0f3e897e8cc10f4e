// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/httpq/transient"
)

// An Execution represents the state of one descriptor's task while a
// queue runs it.
//
// A new Execution is created each time the queue reaches a descriptor.
// It is updated inside the client's serial execution context as the
// task progresses and is handed to event handlers and finally to the
// descriptor's decoder. Handlers may set values on it with SetValue
// but should otherwise treat its exported fields as read-only, with the
// exception of modifying Request during the BeforeTask event.
type Execution struct {
	// Descriptor is the descriptor being executed. It is never nil.
	Descriptor *Descriptor

	// Index is the zero-based position of Descriptor in its queue.
	Index int

	// Start is the time the task started. End is the time the task
	// ended, and remains the zero value while it is in flight.
	Start time.Time
	End   time.Time

	// Request is the HTTP request built for the task. It is nil if the
	// request could not be built. A download satisfied from the cache
	// may have a Request which was never sent.
	Request *http.Request

	// Response is the HTTP response received. Its body has already
	// been consumed or closed by the time the decoder runs.
	Response *http.Response

	// Err is the error that ended the task, if any. It is a transport
	// error, a status error for non-2XX responses, a cache error if a
	// completed download could not be committed, or a cancellation.
	Err error

	// Body is the buffered response body for descriptors which do not
	// download to disk.
	Body []byte

	// Path is the local file holding the body for download descriptors.
	// It is set on a cache hit and after a successful download.
	Path string

	// BytesReceived is the number of body bytes transferred over the
	// network by this task. Bytes recovered from resume data are not
	// counted.
	BytesReceived int64

	// BytesExpected is the total body size, including any resumed
	// prefix, or -1 if the server did not report it.
	BytesExpected int64

	// ResumeOffset is the number of bytes recovered from resume data
	// when the transfer was resumed, or zero.
	ResumeOffset int64

	// FromCache is true when the descriptor completed from the cache
	// without transferring the body.
	FromCache bool

	// Redirects counts redirects followed while executing the task.
	Redirects int

	data context.Context
}

// StatusCode returns the status code of the HTTP response, or 0 if
// there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// Header returns the HTTP response headers, or a nil header if there is
// no response. A nil header is always safe for read-only operations.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}
	return e.Response.Header
}

// Duration returns the duration of the task: zero if it has not
// started, End minus Start once it has ended, and the time elapsed
// since Start otherwise.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}
	return e.End.Sub(e.Start)
}

// Started indicates whether the task has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the task has ended.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Fraction returns how much of the body has been transferred, between
// 0 and 1. It is 0 when the expected size is unknown.
func (e *Execution) Fraction() float64 {
	if e.FromCache {
		return 1
	}
	if e.BytesExpected <= 0 {
		return 0
	}
	f := float64(e.ResumeOffset+e.BytesReceived) / float64(e.BytesExpected)
	if f > 1 {
		f = 1
	}
	return f
}

// Timeout indicates whether Err is a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue allows event handlers to store arbitrary data in the
// execution. The key follows the rules of context.WithValue.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}
	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is none.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}
	return ctx.Value(key)
}
