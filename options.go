// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"net/http"

	"github.com/gogama/httpq/cache"
	"github.com/gogama/httpq/timeout"
	"github.com/sirupsen/logrus"
)

// An Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for scheduling and cache diagnostics. By
// default nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCache sets the download cache. By default the cache lives in the
// "httpq" directory under the user cache directory.
func WithCache(s *cache.Store) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithTransport makes every session share rt instead of getting a
// transport of its own.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.newTransport = func() (http.RoundTripper, error) { return rt, nil }
	}
}

// WithTransportFactory sets the function which creates the transport
// for each session. Transports implementing CloseIdleConnections have
// their idle connections closed when the session ends.
func WithTransportFactory(f func() (http.RoundTripper, error)) Option {
	return func(c *Client) {
		c.newTransport = f
	}
}

// WithHandlers installs event handlers.
func WithHandlers(g *HandlerGroup) Option {
	return func(c *Client) {
		c.handlers = g
	}
}

// WithTimeoutPolicy sets the policy choosing the timeout of descriptors
// that do not set their own. The default is timeout.DefaultPolicy.
func WithTimeoutPolicy(p timeout.Policy) Option {
	return func(c *Client) {
		if p != nil {
			c.timeoutPolicy = p
		}
	}
}

// WithDefaultHeader adds a header sent with every request which does
// not set the same header itself.
func WithDefaultHeader(name, value string) Option {
	return func(c *Client) {
		c.headers.Add(name, value)
	}
}

// WithUserAgent replaces the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.headers.Set("User-Agent", ua)
	}
}

// WithMaxRedirects sets the number of redirects followed per task. Zero
// disables redirects and hands the redirect response to the decoder.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}
