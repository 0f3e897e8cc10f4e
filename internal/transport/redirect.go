// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultMaxRedirects matches the limit of http.Client.
const DefaultMaxRedirects = 10

var (
	// ErrTooManyRedirects is wrapped by the error for a redirect chain
	// longer than the configured maximum.
	ErrTooManyRedirects = errors.New("httpq/transport: too many redirects")
	// ErrCrossProtocolRedirect is wrapped by the error for a redirect
	// from HTTP or HTTPS to some other scheme.
	ErrCrossProtocolRedirect = errors.New("httpq/transport: cross-protocol redirect")
)

// safeHeaders survive a redirect to another host. Range must survive
// for resumed downloads.
var safeHeaders = map[string]bool{
	"User-Agent":      true,
	"Accept":          true,
	"Accept-Language": true,
	"Accept-Encoding": true,
	"Range":           true,
	"If-Range":        true,
	"Cache-Control":   true,
}

// RedirectPolicy returns an http.Client CheckRedirect function which
// allows at most max hops, rejects redirects leaving HTTP, and strips
// non-standard headers when the redirect changes host. A max below 1
// disables redirects: the redirect response itself is returned.
func RedirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if max < 1 {
			return http.ErrUseLastResponse
		}
		if len(via) >= max {
			return fmt.Errorf("%w: exceeded %d hops (last URL: %s)",
				ErrTooManyRedirects, max, via[len(via)-1].URL)
		}
		if len(via) == 0 {
			return nil
		}
		prev := via[len(via)-1]
		if isHTTP(prev.URL.Scheme) && !isHTTP(req.URL.Scheme) {
			return fmt.Errorf("%w: %s -> %s",
				ErrCrossProtocolRedirect, prev.URL.Scheme, req.URL.Scheme)
		}
		if prev.URL.Host != req.URL.Host {
			for key := range req.Header {
				if !safeHeaders[http.CanonicalHeaderKey(key)] {
					req.Header.Del(key)
				}
			}
		}
		return nil
	}
}

func isHTTP(scheme string) bool {
	return scheme == "http" || scheme == "https"
}
