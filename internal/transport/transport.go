// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport builds the HTTP transports used by httpq sessions.
//
// Every admitted queue gets its own RoundTripper from a Factory so that
// finishing the queue can release its idle connections without touching
// other queues. An optional request rate limit is shared by all the
// RoundTrippers a Factory creates.
package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidProxyURL is returned for proxy URLs without a scheme or
	// host.
	ErrInvalidProxyURL = errors.New("httpq/transport: invalid proxy URL")
	// ErrUnsupportedProxy is returned for proxy schemes other than
	// http, https and socks5.
	ErrUnsupportedProxy = errors.New("httpq/transport: unsupported proxy scheme")
)

// Options configure a Factory. The zero value is usable and yields
// plain transports which honor the proxy environment variables.
type Options struct {
	// ProxyURL is an http, https or socks5 proxy. If empty, the
	// HTTP_PROXY family of environment variables is used.
	ProxyURL string

	// ForceHTTP2 enables HTTP/2 even when TLSConfig is customized.
	ForceHTTP2 bool

	// TLSConfig, if set, is used for TLS connections.
	TLSConfig *tls.Config

	// IdleConnTimeout defaults to 90 seconds.
	IdleConnTimeout time.Duration

	// MaxIdleConnsPerHost defaults to 16.
	MaxIdleConnsPerHost int

	// RPS limits the rate of outgoing requests across every
	// RoundTripper of the factory. Zero means no limit. Burst defaults
	// to 1 when RPS is set.
	RPS   float64
	Burst int

	// Logger receives throttle diagnostics. Nil discards them.
	Logger logrus.FieldLogger
}

// A Factory creates RoundTrippers sharing one configuration and one
// rate limiter.
type Factory struct {
	opts    Options
	proxy   *url.URL
	limiter *rate.Limiter
}

// New validates o and returns a Factory.
func New(o Options) (*Factory, error) {
	f := &Factory{opts: o}
	if o.ProxyURL != "" {
		u, err := url.Parse(o.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, ErrInvalidProxyURL
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedProxy, u.Scheme)
		}
		f.proxy = u
	}
	if o.RPS < 0 || o.Burst < 0 {
		return nil, fmt.Errorf("httpq/transport: negative rate limit rps[%g] burst[%d]", o.RPS, o.Burst)
	}
	if o.RPS > 0 {
		burst := o.Burst
		if burst == 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	if f.opts.IdleConnTimeout <= 0 {
		f.opts.IdleConnTimeout = 90 * time.Second
	}
	if f.opts.MaxIdleConnsPerHost <= 0 {
		f.opts.MaxIdleConnsPerHost = 16
	}
	return f, nil
}

// RoundTripper returns a new RoundTripper with its own connection pool.
// The result implements CloseIdleConnections.
func (f *Factory) RoundTripper() (http.RoundTripper, error) {
	t, err := f.transport()
	if err != nil {
		return nil, err
	}
	if f.limiter == nil {
		return t, nil
	}
	return &throttle{limiter: f.limiter, next: t, logger: f.opts.Logger}, nil
}

func (f *Factory) transport() (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   f.opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       f.opts.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	if f.opts.TLSConfig != nil {
		t.TLSClientConfig = f.opts.TLSConfig.Clone()
	}
	if f.proxy != nil {
		if f.proxy.Scheme == "socks5" {
			var auth *proxy.Auth
			if f.proxy.User != nil {
				pass, _ := f.proxy.User.Password()
				auth = &proxy.Auth{User: f.proxy.User.Username(), Password: pass}
			}
			d, err := proxy.SOCKS5("tcp", f.proxy.Host, auth, dialer)
			if err != nil {
				return nil, err
			}
			t.Proxy = nil
			if cd, ok := d.(proxy.ContextDialer); ok {
				t.DialContext = cd.DialContext
			} else {
				t.DialContext = nil
				t.Dial = d.Dial
			}
		} else {
			t.Proxy = http.ProxyURL(f.proxy)
		}
	}
	if f.opts.ForceHTTP2 {
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}
