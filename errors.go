// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrCanceled is the completion error of a queue that was canceled,
	// and the Err of a task interrupted by the cancellation.
	ErrCanceled = errors.New("httpq: queue canceled")

	// ErrClientClosed is returned when submitting to a closed client.
	ErrClientClosed = errors.New("httpq: client closed")

	// ErrQueueClosed is returned when appending to, or submitting, a
	// queue whose Close method has been called.
	ErrQueueClosed = errors.New("httpq: queue closed")

	// ErrQueueOwned is returned when submitting a queue to a client
	// other than the first client it was submitted to.
	ErrQueueOwned = errors.New("httpq: queue belongs to another client")
)

// A TransportError is the error of a task which failed to speak HTTP:
// the connection failed, the request timed out, or the response body
// could not be read in full.
type TransportError struct {
	Err *url.Error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the task timed out.
func (e *TransportError) Timeout() bool { return e.Err.Timeout() }

// A StatusError is the error of a task whose response had a status
// code outside the 2XX range.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpq: unexpected HTTP status %d %s", e.Code, e.Message)
}

// HTTPStatus returns the status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

// A DecodeError is the completion error of a queue whose decoder
// rejected a task that had no error of its own.
type DecodeError struct {
	Index int
	URL   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("httpq: decoder rejected response %d from %s", e.Index, e.URL)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "httpq: task timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var errTaskTimeout error = timeoutError{}

func statusError(resp *http.Response) *StatusError {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

func urlErrorWrap(r *http.Request, err error) *url.Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr
	}
	return &url.Error{
		Op:  urlErrorOp(r.Method),
		URL: r.URL.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
