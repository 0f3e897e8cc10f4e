// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

const (
	nilURLMsg      = "httpq/request: nil URL"
	relativeURLMsg = "httpq/request: URL must be absolute"
)

// A CachePolicy controls how a descriptor interacts with the download
// cache and with caches along the HTTP path.
type CachePolicy int

const (
	// CacheDefault consults the download cache before transferring and
	// commits completed downloads to it.
	CacheDefault CachePolicy = iota
	// CacheReload ignores any existing cache entry, sends
	// "Cache-Control: no-cache", and always transfers the body. The
	// completed download still replaces the cache entry.
	CacheReload
)

// String returns the name of the cache policy.
func (p CachePolicy) String() string {
	switch p {
	case CacheDefault:
		return "default"
	case CacheReload:
		return "reload"
	default:
		return fmt.Sprintf("CachePolicy(%d)", int(p))
	}
}

type downloadKind int

const (
	downloadNone downloadKind = iota
	downloadCache
	downloadPath
)

// A Download names where, if anywhere, a descriptor's response body is
// written to disk. The zero value means the body is buffered in memory
// and handed to the descriptor's decoder instead.
type Download struct {
	kind      downloadKind
	path      string
	size      int64
	sizeKnown bool
}

// ToCache returns a download target which stores the body inside the
// cache entry directory for the descriptor's URL.
func ToCache() Download {
	return Download{kind: downloadCache}
}

// ToPath returns a download target which moves the completed body to
// path. Parent directories are created as needed.
func ToPath(path string) Download {
	return Download{kind: downloadPath, path: path}
}

// WithSize returns a copy of d which declares the expected body size
// in advance. When the size is known, a valid cache entry of that size
// completes the descriptor without any network request.
func (d Download) WithSize(n int64) Download {
	d.size = n
	d.sizeKnown = n >= 0
	return d
}

// Enabled reports whether d writes the body to disk.
func (d Download) Enabled() bool {
	return d.kind != downloadNone
}

// Path returns the fixed target path, or the empty string if the body
// is stored at the cache's default location.
func (d Download) Path() string {
	return d.path
}

// Size returns the declared body size, or -1 if it is not known.
func (d Download) Size() int64 {
	if !d.sizeKnown {
		return -1
	}
	return d.size
}

// A Descriptor describes one logical HTTP call within a queue.
//
// Descriptors are built by the configure function passed to the
// queue's Append method and are frozen from then on: the queue never
// hands the descriptor back to the caller, and the execution logic
// treats every field as read-only.
//
// The field structure follows http.Request where it can. Body and query
// production is delegated to BodyEncoder and QueryEncoder values so the
// descriptor can be turned into a fresh http.Request every time the
// queue is run.
type Descriptor struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the absolute URL to access. Its string form is the
	// cache key source for downloads.
	URL *urlpkg.URL

	// Header contains request header fields to send. Client-wide
	// default headers are added only for names missing from Header.
	Header http.Header

	// CachePolicy controls interaction with the download cache.
	CachePolicy CachePolicy

	// Timeout bounds the wait for response headers, and the idle time
	// between body reads. Zero means the client's timeout policy
	// decides.
	Timeout time.Duration

	// Query optionally produces the raw query string sent with the
	// request. If nil, URL.RawQuery is sent unchanged.
	Query QueryEncoder

	// Body optionally produces the request body. If nil, no body is
	// sent.
	Body BodyEncoder

	// Decoder decides, once the task ends, whether the queue continues.
	// If nil, the client uses a decoder which accepts any execution
	// whose Err is nil.
	Decoder ResponseDecoder

	// Download optionally streams the response body to disk.
	Download Download

	// Preview, if set, is called with the local file path when a
	// download is satisfied from the cache without transferring the
	// body.
	Preview func(path string)
}

// NewDescriptor returns a GET descriptor for the given absolute URL.
func NewDescriptor(url string) (*Descriptor, error) {
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	return &Descriptor{
		Method: http.MethodGet,
		URL:    u,
		Header: make(http.Header),
	}, nil
}

// Validate checks that d can be turned into an HTTP request.
func (d *Descriptor) Validate() error {
	if d.URL == nil {
		return errors.New(nilURLMsg)
	}
	if !d.URL.IsAbs() || d.URL.Host == "" {
		return errors.New(relativeURLMsg)
	}
	if d.Method != "" && !validMethod(d.Method) {
		return fmt.Errorf("httpq/request: invalid method %q", d.Method)
	}
	if d.Timeout < 0 {
		return fmt.Errorf("httpq/request: negative timeout %s", d.Timeout)
	}
	return nil
}

// CacheURL returns the absolute URL string used to derive the cache
// key. The fragment is never part of the key.
func (d *Descriptor) CacheURL() string {
	u := *d.URL
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// NewRequest builds the outgoing http.Request for d.
//
// The query encoder runs first, then the body encoder, which may set
// headers such as Content-Type on the request it is given. The caller's
// headers are applied before the encoders run, and defaults are applied
// last, only for names the request does not already carry.
func (d *Descriptor) NewRequest(ctx context.Context, defaults http.Header) (*http.Request, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}
	u := *d.URL
	if d.Query != nil {
		raw, ok, err := d.Query.EncodeQuery(&u)
		if err != nil {
			return nil, fmt.Errorf("httpq/request: encoding query: %w", err)
		}
		if ok {
			u.RawQuery = raw
		}
	}
	r, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for name, values := range d.Header {
		r.Header[name] = append([]string(nil), values...)
	}
	if d.CachePolicy == CacheReload && r.Header.Get("Cache-Control") == "" {
		r.Header.Set("Cache-Control", "no-cache")
	}
	if d.Body != nil {
		b, err := d.Body.EncodeBody(r)
		if err != nil {
			return nil, fmt.Errorf("httpq/request: encoding body: %w", err)
		}
		if b != nil {
			setBody(r, b)
		}
	}
	for name, values := range defaults {
		if _, ok := r.Header[name]; !ok {
			r.Header[name] = append([]string(nil), values...)
		}
	}
	return r, nil
}

func validMethod(method string) bool {
	return httpguts.ValidHeaderFieldName(method)
}

func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to "" as mandated
// by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
