// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBodyBytes(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		b, err := BodyBytes(nil)
		assert.Nil(t, b)
		assert.NoError(t, err)
		b, err = BodyBytes("foo")
		assert.Equal(t, []byte("foo"), b)
		assert.NoError(t, err)
		b, err = BodyBytes([]byte("bar"))
		assert.Equal(t, []byte("bar"), b)
		assert.NoError(t, err)
		b, err = BodyBytes(strings.NewReader("baz"))
		assert.Equal(t, []byte("baz"), b)
		assert.NoError(t, err)
		b, err = BodyBytes(10)
		assert.Nil(t, b)
		assert.EqualError(t, err, badBodyTypeMsg)
	})
	t.Run("reader errors", func(t *testing.T) {
		expectedErr := errors.New("ham")
		t.Run("Read", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(10, expectedErr).Once()
			b, err := BodyBytes(m)
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
		t.Run("Close", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(0, io.EOF).Once()
			m.On("Close").Return(expectedErr).Once()
			b, err := BodyBytes(m)
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
	})
}

func TestBytesBody(t *testing.T) {
	enc, err := BytesBody("text/plain", strings.NewReader("once"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		r, _ := http.NewRequest("PUT", "http://example.com", nil)
		b, err := enc.EncodeBody(r)
		require.NoError(t, err)
		assert.Equal(t, []byte("once"), b)
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
	}

	_, err = BytesBody("", 3.14)
	assert.EqualError(t, err, badBodyTypeMsg)
}

func TestJSONBody(t *testing.T) {
	r, _ := http.NewRequest("POST", "http://example.com", nil)
	b, err := JSONBody(map[string]int{"n": 1}).EncodeBody(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

	_, err = JSONBody(make(chan int)).EncodeBody(r)
	assert.Error(t, err)
}

func TestFormBody(t *testing.T) {
	r, _ := http.NewRequest("POST", "http://example.com", nil)
	b, err := FormBody(url.Values{"a": {"1"}, "b": {"x y"}}).EncodeBody(r)
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=x+y", string(b))
	assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
}

func TestMergeQuery(t *testing.T) {
	u, _ := url.Parse("http://example.com/p?a=1")
	raw, ok, err := MergeQuery(url.Values{"b": {"2"}, "a": {"3"}}).EncodeQuery(u)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a=1&a=3&b=2", raw)
	assert.Equal(t, "a=1", u.RawQuery)
}

func TestSetBody(t *testing.T) {
	r, _ := http.NewRequest("POST", "http://example.com", nil)
	setBody(r, nil)
	assert.Equal(t, http.NoBody, r.Body)
	assert.Equal(t, int64(0), r.ContentLength)

	setBody(r, []byte("abc"))
	assert.Equal(t, int64(3), r.ContentLength)
	b, _ := io.ReadAll(r.Body)
	assert.Equal(t, "abc", string(b))
	rc, err := r.GetBody()
	require.NoError(t, err)
	b, _ = io.ReadAll(rc)
	assert.Equal(t, "abc", string(b))
}

type mockReadCloser struct {
	mock.Mock
}

func (m *mockReadCloser) Read(p []byte) (n int, err error) {
	args := m.Called(p)
	n = args.Int(0)
	err = args.Error(1)
	return
}

func (m *mockReadCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}
