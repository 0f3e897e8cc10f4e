// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := New(Options{})
		require.NoError(t, err)
		rt, err := f.RoundTripper()
		require.NoError(t, err)
		tr, ok := rt.(*http.Transport)
		require.True(t, ok)
		assert.Equal(t, 90*time.Second, tr.IdleConnTimeout)
		assert.Equal(t, 16, tr.MaxIdleConnsPerHost)
		assert.NotNil(t, tr.Proxy)
	})
	t.Run("bad proxy", func(t *testing.T) {
		_, err := New(Options{ProxyURL: "no-scheme"})
		assert.ErrorIs(t, err, ErrInvalidProxyURL)
		_, err = New(Options{ProxyURL: "ftp://proxy:21"})
		assert.ErrorIs(t, err, ErrUnsupportedProxy)
	})
	t.Run("negative rate", func(t *testing.T) {
		_, err := New(Options{RPS: -1})
		assert.Error(t, err)
	})
	t.Run("http proxy", func(t *testing.T) {
		f, err := New(Options{ProxyURL: "http://proxy.local:3128"})
		require.NoError(t, err)
		rt, err := f.RoundTripper()
		require.NoError(t, err)
		r, _ := http.NewRequest("GET", "http://example.com", nil)
		u, err := rt.(*http.Transport).Proxy(r)
		require.NoError(t, err)
		assert.Equal(t, "proxy.local:3128", u.Host)
	})
	t.Run("socks5 proxy", func(t *testing.T) {
		f, err := New(Options{ProxyURL: "socks5://user:pw@127.0.0.1:1080"})
		require.NoError(t, err)
		rt, err := f.RoundTripper()
		require.NoError(t, err)
		tr := rt.(*http.Transport)
		assert.Nil(t, tr.Proxy)
		assert.NotNil(t, tr.DialContext)
	})
	t.Run("tls and http2", func(t *testing.T) {
		cfg := &tls.Config{ServerName: "example.com"}
		f, err := New(Options{TLSConfig: cfg, ForceHTTP2: true})
		require.NoError(t, err)
		rt, err := f.RoundTripper()
		require.NoError(t, err)
		tr := rt.(*http.Transport)
		require.NotNil(t, tr.TLSClientConfig)
		assert.NotSame(t, cfg, tr.TLSClientConfig)
		assert.Contains(t, tr.TLSClientConfig.NextProtos, "h2")
	})
	t.Run("distinct pools", func(t *testing.T) {
		f, _ := New(Options{})
		a, _ := f.RoundTripper()
		b, _ := f.RoundTripper()
		assert.NotSame(t, a, b)
	})
}

func TestThrottle(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f, err := New(Options{RPS: 1, Burst: 1, Logger: logger})
	require.NoError(t, err)
	rt, err := f.RoundTripper()
	require.NoError(t, err)
	_, ok := rt.(interface{ CloseIdleConnections() })
	assert.True(t, ok)

	client := &http.Client{Transport: rt}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	t.Run("context ends while waiting", func(t *testing.T) {
		other, err := f.RoundTripper()
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		r, _ := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
		_, err = other.RoundTrip(r)
		assert.ErrorIs(t, err, ErrThrottled)
		assert.NotEmpty(t, hook.AllEntries())
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRedirectPolicy(t *testing.T) {
	mk := func(raw string) *http.Request {
		u, _ := url.Parse(raw)
		return &http.Request{URL: u, Header: http.Header{}}
	}

	t.Run("first hop", func(t *testing.T) {
		assert.NoError(t, RedirectPolicy(3)(mk("http://a/"), nil))
	})
	t.Run("too many", func(t *testing.T) {
		via := []*http.Request{mk("http://a/1"), mk("http://a/2")}
		err := RedirectPolicy(2)(mk("http://a/3"), via)
		assert.ErrorIs(t, err, ErrTooManyRedirects)
	})
	t.Run("disabled", func(t *testing.T) {
		err := RedirectPolicy(0)(mk("http://a/2"), []*http.Request{mk("http://a/1")})
		assert.Equal(t, http.ErrUseLastResponse, err)
	})
	t.Run("cross protocol", func(t *testing.T) {
		err := RedirectPolicy(10)(mk("ftp://a/f"), []*http.Request{mk("https://a/")})
		assert.ErrorIs(t, err, ErrCrossProtocolRedirect)
	})
	t.Run("cross origin strips headers", func(t *testing.T) {
		req := mk("https://b/file")
		req.Header.Set("X-Api-Key", "secret")
		req.Header.Set("Range", "bytes=10-")
		req.Header.Set("User-Agent", "httpq")
		require.NoError(t, RedirectPolicy(10)(req, []*http.Request{mk("https://a/file")}))
		assert.Empty(t, req.Header.Get("X-Api-Key"))
		assert.Equal(t, "bytes=10-", req.Header.Get("Range"))
		assert.Equal(t, "httpq", req.Header.Get("User-Agent"))
	})
	t.Run("same origin keeps headers", func(t *testing.T) {
		req := mk("https://a/file2")
		req.Header.Set("X-Api-Key", "secret")
		require.NoError(t, RedirectPolicy(10)(req, []*http.Request{mk("https://a/file")}))
		assert.Equal(t, "secret", req.Header.Get("X-Api-Key"))
	})
}
