// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"context"
	"net/url"

	"github.com/gogama/httpq/request"
)

// Submitter is the interface that wraps the basic Submit method.
//
// Submit hands a queue to a scheduler, which runs it when capacity
// allows. Client implements the Submitter interface, and any other
// Submitter implementation must behave substantially the same as
// Client.Submit.
type Submitter interface {
	Submit(q *Queue) error
}

// Canceler is the interface that wraps the CancelAll and CancelWhere
// methods.
type Canceler interface {
	CancelAll()
	CancelWhere(pred func(*Queue) bool)
}

// Scheduler is the interface that groups the full set of scheduling
// methods implemented by Client.
type Scheduler interface {
	Submitter
	Canceler
	SetConcurrencyLimit(n int)
	Stats() Stats
	Close() error
}

var _ Scheduler = (*Client)(nil)

// Get uses s to run a single GET to the specified URL and waits for it
// to finish. The returned execution holds the buffered response body.
//
// If ctx is done before the request finishes, the queue is canceled and
// the context error is returned.
func Get(ctx context.Context, s Submitter, url string) (*request.Execution, error) {
	return Do(ctx, s, url, nil)
}

// Head uses s to run a single HEAD to the specified URL and waits for
// it to finish.
func Head(ctx context.Context, s Submitter, url string) (*request.Execution, error) {
	return Do(ctx, s, url, func(d *request.Descriptor) {
		d.Method = "HEAD"
	})
}

// Post uses s to run a single POST to the specified URL and waits for
// it to finish.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes, namely: string; []byte;
// io.Reader; and io.ReadCloser.
func Post(ctx context.Context, s Submitter, url, contentType string, body interface{}) (*request.Execution, error) {
	enc, err := request.BytesBody(contentType, body)
	if err != nil {
		return nil, err
	}
	return Do(ctx, s, url, func(d *request.Descriptor) {
		d.Method = "POST"
		d.Body = enc
	})
}

// PostForm uses s to run a single POST to the specified URL, with
// data's keys and values URL-encoded as the request body.
func PostForm(ctx context.Context, s Submitter, url string, data url.Values) (*request.Execution, error) {
	return Do(ctx, s, url, func(d *request.Descriptor) {
		d.Method = "POST"
		d.Body = request.FormBody(data)
	})
}

// Download uses s to download the specified URL to target, or to the
// cache if target is empty, and returns the local path of the body.
// A valid cache entry completes the download without transferring the
// body again.
func Download(ctx context.Context, s Submitter, url, target string) (string, error) {
	e, err := Do(ctx, s, url, func(d *request.Descriptor) {
		if target == "" {
			d.Download = request.ToCache()
		} else {
			d.Download = request.ToPath(target)
		}
	})
	if err != nil {
		return "", err
	}
	return e.Path, nil
}

// Do builds a single-descriptor queue for url, submits it to s, and
// waits for it to finish. Configure may customize the descriptor as in
// Queue.Append, except that its Decoder is always replaced.
func Do(ctx context.Context, s Submitter, url string, configure func(*request.Descriptor)) (*request.Execution, error) {
	var e *request.Execution
	q := NewQueue()
	err := q.Append(url, func(d *request.Descriptor) {
		if configure != nil {
			configure(d)
		}
		d.Decoder = captureDecoder(func(x *request.Execution) {
			e = x
		})
	})
	if err != nil {
		return nil, err
	}
	if err = s.Submit(q); err != nil {
		return nil, err
	}
	if err = q.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			q.Cancel()
		}
		return e, err
	}
	return e, nil
}

type captureDecoder func(*request.Execution)

func (f captureDecoder) Decode(e *request.Execution) bool {
	f(e)
	return e.Err == nil
}
