// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	urlpkg "net/url"
)

const badBodyTypeMsg = "httpq/request: invalid type (for body use nil, " +
	"string, []byte, io.Reader or io.ReadCloser)"

// A BodyEncoder produces the body of an outgoing request. It may set
// headers on r, for example Content-Type. A nil return value with a
// nil error means no body is sent.
type BodyEncoder interface {
	EncodeBody(r *http.Request) ([]byte, error)
}

// The BodyFunc type is an adapter to allow the use of ordinary
// functions as body encoders.
type BodyFunc func(r *http.Request) ([]byte, error)

// EncodeBody calls f(r).
func (f BodyFunc) EncodeBody(r *http.Request) ([]byte, error) {
	return f(r)
}

// A QueryEncoder produces the raw query string of an outgoing request
// from the descriptor URL. If ok is false the URL's own query is used.
type QueryEncoder interface {
	EncodeQuery(u *urlpkg.URL) (raw string, ok bool, err error)
}

// The QueryFunc type is an adapter to allow the use of ordinary
// functions as query encoders.
type QueryFunc func(u *urlpkg.URL) (string, bool, error)

// EncodeQuery calls f(u).
func (f QueryFunc) EncodeQuery(u *urlpkg.URL) (string, bool, error) {
	return f(u)
}

// A ResponseDecoder inspects a finished task and reports whether the
// queue should continue with its next descriptor. Returning false ends
// the queue in failure.
type ResponseDecoder interface {
	Decode(e *Execution) bool
}

// BytesBody returns a body encoder which sends body with the given
// content type. The body may be nil, a string, []byte, io.Reader or
// io.ReadCloser; readers are consumed once, when BytesBody is called,
// so the returned encoder can produce the same body on every run.
func BytesBody(contentType string, body interface{}) (BodyEncoder, error) {
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return BodyFunc(func(r *http.Request) ([]byte, error) {
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		return b, nil
	}), nil
}

// JSONBody returns a body encoder which marshals v as JSON each time
// the request is built.
func JSONBody(v interface{}) BodyEncoder {
	return BodyFunc(func(r *http.Request) ([]byte, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return b, nil
	})
}

// FormBody returns a body encoder which sends data URL-encoded with the
// content type application/x-www-form-urlencoded.
func FormBody(data urlpkg.Values) BodyEncoder {
	return BodyFunc(func(r *http.Request) ([]byte, error) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return []byte(data.Encode()), nil
	})
}

// MergeQuery returns a query encoder which adds values to the query
// already present on the descriptor URL.
func MergeQuery(values urlpkg.Values) QueryEncoder {
	return QueryFunc(func(u *urlpkg.URL) (string, bool, error) {
		q := u.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		return q.Encode(), true, nil
	})
}

// BodyBytes converts a generic body parameter to a byte slice.
//
// The body parameter may be nil, or it may be a string, []byte,
// io.Reader, or io.ReadCloser. Readers are read to the end, and closed
// if they implement io.Closer. Any other type is an error.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, err
		}
		if err = x.Close(); err != nil {
			return nil, err
		}
		return b, nil
	case io.Reader:
		return BodyBytes(io.NopCloser(x))
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
}

func setBody(r *http.Request, b []byte) {
	if len(b) == 0 {
		r.ContentLength = 0
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	r.ContentLength = int64(len(b))
	r.Body = io.NopCloser(bytes.NewReader(b))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}
